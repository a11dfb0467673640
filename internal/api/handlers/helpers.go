// Package handlers implements dupefind's read-only HTTP API handlers: a
// shared writeJSON/writeError envelope plus the status and runs handlers,
// trimmed to the endpoints the progress model and run store support.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dupefind/dupefind/internal/log"
)

// ErrorBody is the standard error envelope for every non-2xx response.
type ErrorBody struct {
	Error APIError `json:"error"`
}

// APIError holds a machine-readable code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON serializes v as JSON with the given status code.
func writeJSON(logger *log.Logger, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("api: encode response", log.Error(err))
	}
}

// writeError writes the standard error envelope.
func writeError(logger *log.Logger, w http.ResponseWriter, status int, code, message string) {
	writeJSON(logger, w, status, ErrorBody{Error: APIError{Code: code, Message: message}})
}
