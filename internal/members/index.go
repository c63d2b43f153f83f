package members

import (
	"strings"

	"aurora-qa/internal/domain"
)

// Member is a known member with the messages attributed to its name.
type Member struct {
	Name     string
	Messages []domain.MessageRecord
}

type entry struct {
	name     string
	key      string
	first    string
	position int
	messages []domain.MessageRecord
}

// Index groups message records by member name. Names are matched
// case-insensitively; the first-seen spelling is kept for display.
// An Index is read-only once Build returns.
type Index struct {
	entries []*entry
	byKey   map[string]*entry
	byFirst map[string][]*entry
}

// Build groups records by member name in provider order. Records without a
// usable member name are left out.
func Build(records []domain.MessageRecord) *Index {
	ix := &Index{
		byKey:   make(map[string]*entry),
		byFirst: make(map[string][]*entry),
	}
	for _, rec := range records {
		key := normalizeName(rec.MemberName)
		if key == "" {
			continue
		}
		e, ok := ix.byKey[key]
		if !ok {
			display := strings.Join(strings.Fields(rec.MemberName), " ")
			e = &entry{
				name:     display,
				key:      key,
				first:    firstToken(key),
				position: len(ix.entries),
			}
			ix.entries = append(ix.entries, e)
			ix.byKey[key] = e
			ix.byFirst[e.first] = append(ix.byFirst[e.first], e)
		}
		e.messages = append(e.messages, rec)
	}
	return ix
}

// Len reports the number of distinct members.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Names returns display names in first-encountered order.
func (ix *Index) Names() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e.name)
	}
	return out
}

// Lookup finds a member by name, ignoring case and repeated whitespace.
func (ix *Index) Lookup(name string) (Member, bool) {
	e := ix.get(name)
	if e == nil {
		return Member{}, false
	}
	return e.member(), true
}

// Messages returns a copy of the messages attributed to name, in provider order.
func (ix *Index) Messages(name string) []domain.MessageRecord {
	e := ix.get(name)
	if e == nil {
		return nil
	}
	return e.member().Messages
}

// Count returns how many messages are attributed to name.
func (ix *Index) Count(name string) int {
	e := ix.get(name)
	if e == nil {
		return 0
	}
	return len(e.messages)
}

// ByFirstToken returns the display names whose first word equals token,
// case-insensitively, in first-encountered order.
func (ix *Index) ByFirstToken(token string) []string {
	if ix == nil {
		return nil
	}
	matches := ix.byFirst[strings.ToLower(strings.TrimSpace(token))]
	out := make([]string, 0, len(matches))
	for _, e := range matches {
		out = append(out, e.name)
	}
	return out
}

// Summaries lists every member with its message count in first-encountered order.
func (ix *Index) Summaries() []domain.MemberSummary {
	if ix == nil {
		return []domain.MemberSummary{}
	}
	out := make([]domain.MemberSummary, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, domain.MemberSummary{Name: e.name, Messages: len(e.messages)})
	}
	return out
}

func (ix *Index) get(name string) *entry {
	if ix == nil {
		return nil
	}
	return ix.byKey[normalizeName(name)]
}

func (e *entry) member() Member {
	msgs := make([]domain.MessageRecord, len(e.messages))
	copy(msgs, e.messages)
	return Member{Name: e.name, Messages: msgs}
}

// normalizeName lowercases and collapses whitespace.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func firstToken(key string) string {
	if i := strings.IndexByte(key, ' '); i >= 0 {
		return key[:i]
	}
	return key
}
