package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RawPage is the provider's /messages payload. Items are kept as raw JSON so
// diagnostics can return them exactly as received.
type RawPage struct {
	Total int               `json:"total"`
	Items []json.RawMessage `json:"items"`
}

// rawItem mirrors one provider item. Every field is decoded lazily so a null,
// missing or oddly typed value never rejects the whole item.
type rawItem struct {
	ID        json.RawMessage `json:"id"`
	UserID    json.RawMessage `json:"user_id"`
	UserName  json.RawMessage `json:"user_name"`
	Timestamp json.RawMessage `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

// Records decodes the page items into MessageRecords in provider order.
// Items that are not JSON objects are skipped and counted.
func (p RawPage) Records() ([]MessageRecord, int) {
	records := make([]MessageRecord, 0, len(p.Items))
	skipped := 0
	for _, raw := range p.Items {
		var item rawItem
		if err := json.Unmarshal(raw, &item); err != nil {
			skipped++
			continue
		}
		records = append(records, MessageRecord{
			ID:         opaqueString(item.ID),
			MemberID:   opaqueString(item.UserID),
			MemberName: strings.TrimSpace(opaqueString(item.UserName)),
			Text:       opaqueString(item.Message),
			Timestamp:  opaqueString(item.Timestamp),
		})
	}
	return records, skipped
}

// Sample returns at most n raw items from the front of the page.
func (p RawPage) Sample(n int) []json.RawMessage {
	if n <= 0 || len(p.Items) == 0 {
		return []json.RawMessage{}
	}
	if n > len(p.Items) {
		n = len(p.Items)
	}
	out := make([]json.RawMessage, n)
	copy(out, p.Items[:n])
	return out
}

// opaqueString renders a JSON value as text: strings are unquoted, null and
// absent values become "", anything else is kept as its JSON literal.
func opaqueString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
