package remotetest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Pusher91/truderwatch/internal/client/api"
)

type handler func(r *http.Request) (any, *api.APIError)

type response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *api.Error `json:"error,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func wrap(method string, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeEnvelope(w, http.StatusMethodNotAllowed, response{Error: &api.Error{
				Code: "method_not_allowed", Message: "method not allowed",
			}})
			return
		}
		data, apiErr := h(r)
		if apiErr != nil {
			writeEnvelope(w, apiErr.Status, response{Error: &apiErr.Err})
			return
		}
		writeEnvelope(w, http.StatusOK, response{OK: true, Data: data})
	}
}

func notFound() *api.APIError {
	return &api.APIError{Status: http.StatusNotFound, Err: api.Error{Code: "not_found", Message: "scan not found"}}
}

func conflict(msg string) *api.APIError {
	return &api.APIError{Status: http.StatusConflict, Err: api.Error{Code: "conflict", Message: msg}}
}

func internal(msg string) *api.APIError {
	return &api.APIError{Status: http.StatusInternalServerError, Err: api.Error{Code: "internal_error", Message: msg}}
}

func badJSON() *api.APIError {
	return &api.APIError{Status: http.StatusBadRequest, Err: api.Error{Code: "bad_json", Message: "bad json"}}
}

func readScanID(r *http.Request) (string, *api.APIError) {
	var body api.ScanIDBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return "", badJSON()
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "", badJSON()
	}
	return api.RequireScanID(body.ScanID)
}
