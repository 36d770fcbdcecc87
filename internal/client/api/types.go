package api

import "encoding/json"

type Error struct {
	Code    string            `json:"code"`              // stable machine code
	Message string            `json:"message"`           // safe UI message
	Details map[string]string `json:"details,omitempty"` // optional per-field validation errors
}

type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// envelope is the lenient decode target: servers that do not wrap their
// payload still yield top-level message/details.
type envelope struct {
	OK      *bool             `json:"ok"`
	Data    json.RawMessage   `json:"data"`
	Error   *Error            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}
