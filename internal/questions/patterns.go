package questions

import (
	"regexp"
	"strings"
)

// Matcher is a named pattern that extracts a phrase from free text.
type Matcher struct {
	Name string
	re   *regexp.Regexp
}

// NewMatcher compiles pattern. The first capture group, when present, is the
// extracted value; otherwise the whole match is.
func NewMatcher(name, pattern string) Matcher {
	return Matcher{Name: name, re: regexp.MustCompile(pattern)}
}

// Find returns the first extracted value in text.
func (m Matcher) Find(text string) (string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	if len(sub) > 1 {
		return sub[1], true
	}
	return sub[0], true
}

// FindFirst tries matchers in order and returns the first hit.
func FindFirst(matchers []Matcher, text string) (string, bool) {
	for _, m := range matchers {
		if v, ok := m.Find(text); ok {
			return v, true
		}
	}
	return "", false
}

var (
	dateMatchers = []Matcher{
		NewMatcher("month_day", `\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?\b(?:,\s*\d{4})?`),
		NewMatcher("numeric", `\b\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b`),
	}

	carCountMatcher = NewMatcher("car_count", `(?i)\b(\d+)\s*cars?\b`)

	favoriteRestaurantMatcher = NewMatcher("favorite_restaurant", `(?i)\bfavou?rite\s+restaurants?\b`)

	destinationMatcher = NewMatcher("destination", `(?i)\btrip\s+to\s+(\p{L}[\p{L}'.-]*(?:\s+\p{L}[\p{L}'.-]*)*)`)
)

// FindDate returns the first date-like phrase in text exactly as written:
// a month name with a day ("June 5th", "Sept 3, 2025") or a numeric date
// ("06/05/2025"), tried in that order.
func FindDate(text string) (string, bool) {
	return FindFirst(dateMatchers, text)
}

// destinationStops end a destination phrase taken from a question.
var destinationStops = map[string]struct{}{
	"next": {}, "this": {}, "last": {}, "in": {}, "on": {}, "during": {}, "for": {},
	"around": {}, "with": {}, "later": {}, "soon": {}, "and": {}, "or": {}, "by": {},
	"before": {}, "after": {}, "planned": {}, "scheduled": {},
}

// Destination returns the place named after "trip to" in a question.
func Destination(question string) (string, bool) {
	phrase, ok := destinationMatcher.Find(question)
	if !ok {
		return "", false
	}
	var words []string
	for _, w := range strings.Fields(phrase) {
		if _, stop := destinationStops[strings.ToLower(w)]; stop {
			break
		}
		words = append(words, w)
	}
	dest := strings.TrimRight(strings.Join(words, " "), ".'-")
	return dest, dest != ""
}
