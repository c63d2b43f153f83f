package members

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"aurora-qa/internal/domain"
)

// Outcome says which kind of Resolution was produced.
type Outcome int

const (
	NotFound Outcome = iota
	Resolved
	Suggested
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Suggested:
		return "suggested"
	default:
		return "not_found"
	}
}

// Rules that can produce a Resolved or Suggested outcome.
const (
	RuleFullName     = "full_name"
	RuleFirstName    = "first_name"
	RuleMostMessages = "most_messages"
	RuleSimilarName  = "similar_name"
)

// Resolution is the result of mapping a question to a member. Name and
// Messages are only set when Outcome is Resolved or Suggested; Queried and
// Similarity are set for suggestions, and Queried may be set for NotFound.
type Resolution struct {
	Outcome    Outcome
	Rule       string
	Name       string
	Messages   []domain.MessageRecord
	Queried    string
	Similarity float64
}

// Resolve identifies the member a question is about. Rules are tried in
// order: full name in the text, unique first name, most messages among
// first-name matches, then the closest known name to a name-like fragment.
func Resolve(question string, ix *Index) Resolution {
	q := strings.TrimSpace(question)
	if q == "" || ix.Len() == 0 {
		return Resolution{Outcome: NotFound}
	}
	normalized := normalizeName(q)

	tied := ix.fullNameMatches(normalized)
	if len(tied) == 1 {
		return ix.resolved(tied[0], RuleFullName)
	}
	if e, rule := ix.firstNameMatch(normalized, tied); e != nil {
		return ix.resolved(e, rule)
	}

	fragments := NameFragments(q)
	if len(fragments) == 0 {
		return Resolution{Outcome: NotFound}
	}
	var (
		best      *entry
		bestFrag  string
		bestScore float64
	)
	// Earlier fragments win ties, as do earlier members.
	for _, frag := range fragments {
		for _, e := range ix.entries {
			if s := nameScore(frag, e); s > bestScore {
				best, bestFrag, bestScore = e, frag, s
			}
		}
	}
	if best == nil || bestScore < SimilarityThreshold {
		return Resolution{Outcome: NotFound, Queried: fragments[0]}
	}
	return Resolution{
		Outcome:    Suggested,
		Rule:       RuleSimilarName,
		Name:       best.name,
		Messages:   ix.Messages(best.name),
		Queried:    bestFrag,
		Similarity: bestScore,
	}
}

func (ix *Index) resolved(e *entry, rule string) Resolution {
	m, _ := ix.Lookup(e.name)
	return Resolution{Outcome: Resolved, Rule: rule, Name: m.Name, Messages: m.Messages}
}

// fullNameMatches returns the longest known names contained in the question,
// in index order. More than one result means the longest match is tied.
func (ix *Index) fullNameMatches(question string) []*entry {
	var (
		out     []*entry
		longest int
	)
	for _, e := range ix.entries {
		if !strings.Contains(question, e.key) {
			continue
		}
		n := len([]rune(e.key))
		switch {
		case n > longest:
			out, longest = []*entry{e}, n
		case n == longest:
			out = append(out, e)
		}
	}
	return out
}

// firstNameMatch resolves by first name through the first-token index. When
// restrict is non-empty only those entries are considered, and they are still
// decided by message count if none of their first names appear as a word.
func (ix *Index) firstNameMatch(question string, restrict []*entry) (*entry, string) {
	allowed := func(*entry) bool { return true }
	if len(restrict) > 0 {
		allowed = func(e *entry) bool { return slices.Contains(restrict, e) }
	}

	seen := make(map[*entry]struct{})
	var candidates []*entry
	for w := range questionWords(question) {
		for _, name := range ix.ByFirstToken(w) {
			e := ix.get(name)
			if _, dup := seen[e]; dup || !allowed(e) {
				continue
			}
			seen[e] = struct{}{}
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 && len(restrict) > 0 {
		candidates = restrict
	}
	slices.SortFunc(candidates, func(a, b *entry) int { return a.position - b.position })

	switch len(candidates) {
	case 0:
		return nil, ""
	case 1:
		return candidates[0], RuleFirstName
	}
	return ix.mostMessages(candidates), RuleMostMessages
}

// mostMessages picks the candidate with the most messages. candidates are in
// first-seen order, so ties go to the earliest member.
func (ix *Index) mostMessages(candidates []*entry) *entry {
	best, bestCount := candidates[0], ix.Count(candidates[0].name)
	for _, e := range candidates[1:] {
		if n := ix.Count(e.name); n > bestCount {
			best, bestCount = e, n
		}
	}
	return best
}

// questionWords returns the lowercase words of a question, both as runs of
// letters ("amira's" gives "amira" and "s") and as whitespace-separated words
// with surrounding punctuation removed ("al-farsi").
func questionWords(question string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, run := range strings.FieldsFunc(question, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[run] = struct{}{}
	}
	for _, field := range strings.Fields(question) {
		if w := cleanWord(field); w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}

var possessiveRe = regexp.MustCompile(`(\p{L}[\p{L}-]*)['’]s\b`)

// NameFragment returns the most name-like text in a question, or "".
func NameFragment(question string) string {
	if frags := NameFragments(question); len(frags) > 0 {
		return frags[0]
	}
	return ""
}

// NameFragments lists the name-like parts of a question, best first:
// possessives ("Amira's"), runs of capitalised words that are not stop-words,
// then the word after "does", "is", "for" and similar. The opening word of
// the question is never taken as a capitalised or possessive name, since
// every sentence starts with a capital.
func NameFragments(question string) []string {
	var out []string
	add := func(f string) {
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	opening := len(question) - len(strings.TrimLeftFunc(question, func(r rune) bool { return !unicode.IsLetter(r) }))
	for _, loc := range possessiveRe.FindAllStringSubmatchIndex(question, -1) {
		word := question[loc[2]:loc[3]]
		if loc[2] == opening || isStopWord(word) {
			continue
		}
		add(word)
	}

	fields := strings.Fields(question)
	for i := 1; i < len(fields); i++ {
		w := cleanWord(fields[i])
		if !isCapitalized(w) || isStopWord(w) {
			continue
		}
		parts := []string{w}
		j := i + 1
		for ; j < len(fields) && !endsClause(fields[j-1]); j++ {
			next := cleanWord(fields[j])
			if !isCapitalized(next) || isStopWord(next) {
				break
			}
			parts = append(parts, next)
		}
		add(strings.Join(parts, " "))
		i = j - 1
	}

	for i := 0; i+1 < len(fields); i++ {
		if _, ok := triggerWords[strings.ToLower(cleanWord(fields[i]))]; !ok {
			continue
		}
		if next := cleanWord(fields[i+1]); next != "" && !isStopWord(next) {
			add(next)
		}
	}
	return out
}

// cleanWord trims surrounding non-letters and a possessive suffix.
func cleanWord(w string) string {
	w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, suffix := range []string{"'s", "’s", "'S"} {
		if strings.HasSuffix(w, suffix) {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}

func isCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func endsClause(raw string) bool {
	r := []rune(raw)
	if len(r) == 0 {
		return true
	}
	last := r[len(r)-1]
	return !unicode.IsLetter(last) && !unicode.IsDigit(last)
}

func isStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

var triggerWords = map[string]struct{}{
	"does": {}, "is": {}, "for": {}, "about": {}, "did": {}, "has": {},
}

var stopWords = func() map[string]struct{} {
	words := []string{
		// interrogatives and auxiliaries
		"what", "when", "where", "who", "whom", "whose", "which", "why", "how",
		"do", "does", "did", "is", "are", "was", "were", "be", "been", "has", "have", "had",
		"can", "could", "would", "should", "will", "shall", "may", "might", "must",
		// imperatives that open a question
		"tell", "give", "show", "list", "find", "please", "describe", "let",
		// pronouns and determiners
		"i", "me", "my", "we", "us", "our", "you", "your", "he", "him", "his", "she", "her",
		"they", "them", "their", "it", "its", "this", "that", "these", "those", "there",
		"the", "a", "an", "any", "some", "many", "much", "all", "member", "members",
		// prepositions and conjunctions
		"of", "for", "to", "about", "in", "on", "at", "by", "with", "from", "and", "or", "not",
		// domain words that often appear capitalised
		"car", "cars", "trip", "favorite", "favourite", "restaurant", "restaurants",
		"january", "february", "march", "april", "june", "july", "august",
		"september", "october", "november", "december",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
