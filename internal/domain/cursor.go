package domain

import (
	"bytes"
	"encoding/json"
)

// Cursor is a server-defined page position. The client never interprets it;
// it is only echoed back on the next request.
type Cursor string

const FirstCursor Cursor = "0"

func (c Cursor) String() string { return string(c) }

func (c Cursor) OrFirst() Cursor {
	if c == "" {
		return FirstCursor
	}
	return c
}

// UnmarshalJSON accepts both numeric and string cursors.
func (c *Cursor) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Cursor(n.String())
	return nil
}
