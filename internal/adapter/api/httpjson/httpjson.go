// Package httpjson holds the JSON response envelope shared by handlers and
// middleware.
package httpjson

import (
	"encoding/json"
	"net/http"

	"github.com/user/plugin-gateway/internal/domain"
)

// ErrorResponse is the envelope for every non-2xx response: a stable error
// code plus a human-readable message, with optional per-field detail.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// Write serializes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps err onto the error envelope. Unknown errors become a
// redacted 500; includeDetail exposes the underlying message in
// non-production builds.
func WriteError(w http.ResponseWriter, err error, includeDetail bool) {
	appErr, ok := domain.AsError(err)
	if !ok {
		appErr = domain.Unexpected(err)
	}

	message := appErr.Message
	if appErr.Code == domain.CodeUnexpected && includeDetail {
		message = err.Error()
	}

	Write(w, appErr.Status, ErrorResponse{
		Error:   string(appErr.Code),
		Message: message,
		Fields:  appErr.Fields,
	})
}
