package bulk

import (
	"encoding/base64"
	"encoding/json"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// Cursor is an opaque resume point for job listings. It wraps the
// nextRecordsUrl Salesforce hands back, versioned for future
// migrations.
type Cursor struct {
	Version int    `json:"v"`
	Next    string `json:"next"`
}

// NewCursor creates a cursor from a nextRecordsUrl value.
func NewCursor(next string) *Cursor {
	return &Cursor{Version: CursorVersion, Next: next}
}

// Encode serializes the cursor to a base64-encoded JSON string.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64-encoded JSON
// string. An empty input yields a nil cursor (start from the
// beginning).
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.Next == "" {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}
