package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/voicebox/internal/service"
)

// APIError is the body of every error response: {"error": "..."}.
type APIError struct {
	Message string `json:"error"`
	status  int
}

// Error returns the client-facing message.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus returns the HTTP status code.
func (e *APIError) GetStatus() int {
	return e.status
}

// NewAPIError creates an error response with the given status.
func NewAPIError(status int, msg string) *APIError {
	return &APIError{status: status, Message: msg}
}

func init() {
	// Framework errors (body too large, bad headers, ...) use the same envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if err := errors.Join(errs...); err != nil && msg == "" {
			msg = err.Error()
		}
		return NewAPIError(status, msg)
	}
}

// statusFor maps service error kinds onto HTTP statuses.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindUnsupported:
		return http.StatusBadRequest
	case service.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toAPIError converts a service error. Engine detail is only exposed in debug mode.
func toAPIError(err error, debug bool) *APIError {
	var se *service.Error
	if !errors.As(err, &se) {
		msg := "Internal server error"
		if debug {
			msg += ": " + err.Error()
		}
		return NewAPIError(http.StatusInternalServerError, msg)
	}

	msg := se.Message
	if debug && se.Err != nil && se.Kind != service.KindBusy {
		msg += ": " + se.Err.Error()
	}

	return NewAPIError(statusFor(se.Kind), msg)
}

// writeJSONError writes e outside of huma, for plain chi middleware.
func writeJSONError(w http.ResponseWriter, e *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	_ = json.NewEncoder(w).Encode(e)
}
