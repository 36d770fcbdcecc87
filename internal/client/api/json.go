package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 64 << 20

// DecodeResponse reads resp and unmarshals its payload into dst. The payload
// is the envelope's data field when present, else the whole body. Non-2xx
// statuses and {"ok":false,"error":...} bodies become *APIError.
func DecodeResponse(resp *http.Response, dst any) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	parsed := len(b) > 0 && json.Unmarshal(b, &env) == nil

	failed := resp.StatusCode < 200 || resp.StatusCode >= 300
	if parsed && env.OK != nil && !*env.OK && env.Error != nil {
		failed = true
	}
	if failed {
		return errorFromBody(resp.StatusCode, env, parsed, b)
	}

	if dst == nil {
		return nil
	}
	payload := b
	if parsed && len(env.Data) > 0 && string(env.Data) != "null" {
		payload = env.Data
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorFromBody(status int, env envelope, parsed bool, body []byte) *APIError {
	out := &APIError{Status: status}
	if parsed {
		if env.Error != nil {
			out.Err = *env.Error
		}
		if out.Err.Message == "" {
			out.Err.Message = env.Message
		}
		if out.Err.Details == nil {
			out.Err.Details = env.Details
		}
	}
	if out.Err.Message == "" && !parsed {
		out.Err.Message = strings.TrimSpace(string(body))
	}
	if out.Err.Message == "" {
		out.Err.Message = fmt.Sprintf("request failed (%d)", status)
	}
	return out
}
