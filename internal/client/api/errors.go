package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed remote call: the HTTP status plus whatever the
// server put in its error envelope.
type APIError struct {
	Status int
	Err    Error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Err.Message
	if msg == "" {
		msg = fmt.Sprintf("request failed (%d)", e.Status)
	}
	if e.Err.Code != "" {
		return e.Err.Code + ": " + msg
	}
	return msg
}

func ValidationError(details map[string]string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Err: Error{
			Code:    "validation_error",
			Message: "invalid request",
			Details: details,
		},
	}
}

func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Err.Code
	}
	return ""
}

func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

func IsConflict(err error) bool { return StatusOf(err) == http.StatusConflict }
