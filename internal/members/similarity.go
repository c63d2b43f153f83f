package members

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityThreshold is the minimum score for offering a member as a
// suggestion when no exact or first-name match exists.
const SimilarityThreshold = 0.80

// Similarity returns a case-insensitive edit similarity in [0, 1]:
// one minus the Levenshtein distance over the longer string's length.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return float64(longest-dist) / float64(longest)
}

// nameScore compares a queried fragment against a known name. A one-word
// fragment such as "Amira" is compared with both the full name and its
// leading word, so first names alone can still be suggested.
func nameScore(fragment string, e *entry) float64 {
	frag := normalizeName(fragment)
	if frag == "" {
		return 0
	}
	score := Similarity(frag, e.key)

	fragWords := len(strings.Fields(frag))
	nameWords := strings.Fields(e.key)
	if fragWords < len(nameWords) {
		prefix := strings.Join(nameWords[:fragWords], " ")
		if s := Similarity(frag, prefix); s > score {
			score = s
		}
	}
	return score
}
