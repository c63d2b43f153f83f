package domain

// MessageRecord is a single member message as supplied by the data provider.
// Records are immutable once decoded; fields the provider omitted are empty.
type MessageRecord struct {
	ID         string
	MemberID   string
	MemberName string
	Text       string
	// Timestamp is passed through verbatim. No format is guaranteed.
	Timestamp string
}

// MemberSummary is a known member name and the number of messages attributed to it.
type MemberSummary struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
}
