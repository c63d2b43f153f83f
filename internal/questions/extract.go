package questions

import (
	"fmt"
	"strconv"
	"strings"

	"aurora-qa/internal/domain"
)

// Request is what an extractor works on: the original question and the
// resolved member's messages in provider order.
type Request struct {
	Question string
	Member   string
	Messages []domain.MessageRecord
}

// Extractor scans a member's messages for a targeted answer. ok is false
// when the messages hold no evidence for it.
type Extractor func(req Request) (answer string, ok bool)

var extractors = map[Type]Extractor{
	CarCount:            extractCarCount,
	TripWhen:            extractTripWhen,
	FavoriteRestaurants: extractFavoriteRestaurants,
}

// Extract runs the extractor registered for t. Generic has no extractor and
// always reports no evidence.
func Extract(t Type, req Request) (string, bool) {
	fn, ok := extractors[t]
	if !ok {
		return "", false
	}
	return fn(req)
}

// Fallback answers with the member's most recent non-empty message, framed
// as a general excerpt rather than a targeted answer.
func Fallback(req Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if text := strings.TrimSpace(req.Messages[i].Text); text != "" {
			return fmt.Sprintf("Here is the most recent message from %s: %s", req.Member, text)
		}
	}
	return fmt.Sprintf("I couldn't find any messages for %s.", req.Member)
}

// extractCarCount reports the first "<n> car(s)" mention in provider order.
func extractCarCount(req Request) (string, bool) {
	for _, m := range req.Messages {
		raw, ok := carCountMatcher.Find(m.Text)
		if !ok {
			continue
		}
		noun := "cars"
		if n, err := strconv.Atoi(raw); err == nil {
			raw = strconv.Itoa(n)
			if n == 1 {
				noun = "car"
			}
		}
		return fmt.Sprintf("%s has %s %s.", req.Member, raw, noun), true
	}
	return "", false
}

// extractTripWhen finds the first message that names the destination from
// the question together with a date phrase.
func extractTripWhen(req Request) (string, bool) {
	dest, ok := Destination(req.Question)
	if !ok {
		return "", false
	}
	needle := strings.ToLower(dest)
	for _, m := range req.Messages {
		if !strings.Contains(strings.ToLower(m.Text), needle) {
			continue
		}
		if date, ok := FindDate(m.Text); ok {
			return fmt.Sprintf("%s is planning their trip to %s around %s.", req.Member, dest, date), true
		}
	}
	return "", false
}

// extractFavoriteRestaurants returns the most recent message, by provider
// order, that talks about favourite restaurants, verbatim.
func extractFavoriteRestaurants(req Request) (string, bool) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		text := req.Messages[i].Text
		if _, ok := favoriteRestaurantMatcher.Find(text); ok {
			return strings.TrimSpace(text), true
		}
	}
	return "", false
}
