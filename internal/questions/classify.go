package questions

import "regexp"

// Type is the closed set of question kinds the service can answer.
type Type int

const (
	Generic Type = iota
	CarCount
	TripWhen
	FavoriteRestaurants
)

func (t Type) String() string {
	switch t {
	case CarCount:
		return "car_count"
	case TripWhen:
		return "trip_when"
	case FavoriteRestaurants:
		return "favorite_restaurants"
	default:
		return "generic"
	}
}

type rule struct {
	label Type
	all   []*regexp.Regexp
}

func (r rule) matches(question string) bool {
	for _, re := range r.all {
		if !re.MatchString(question) {
			return false
		}
	}
	return true
}

// rules are evaluated in order and the first match wins.
var rules = []rule{
	{label: CarCount, all: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcars?\b`),
		regexp.MustCompile(`(?i)\bhow\s+many\b`),
	}},
	{label: TripWhen, all: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btrip\s+to\b`),
		regexp.MustCompile(`(?i)\bwhen\b`),
	}},
	{label: FavoriteRestaurants, all: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfavou?rite\b`),
		regexp.MustCompile(`(?i)\brestaurants?\b`),
	}},
}

// Classify assigns exactly one Type to a question. It never fails; anything
// that matches no rule is Generic.
func Classify(question string) Type {
	for _, r := range rules {
		if r.matches(question) {
			return r.label
		}
	}
	return Generic
}
