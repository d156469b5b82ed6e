// Package apierr defines the error taxonomy shared by the data API, its
// client, and the agent tool layer. Errors cross the wire as
// {"error":{"kind":"...","message":"..."}} and are rebuilt into typed
// errors on the client side so callers can branch on the kind.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindInternal       Kind = "internal"
)

// Error is a classified API error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a ValidationError.
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// NotFound creates a NotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict creates a Conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// Authentication creates a generic AuthenticationError. The message is
// deliberately uniform so callers cannot distinguish unknown users from
// wrong passwords.
func Authentication() *Error {
	return New(KindAuthentication, "invalid username or password")
}

// Internal wraps an unexpected failure.
func Internal(format string, args ...interface{}) *Error {
	return New(KindInternal, format, args...)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to an HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// envelope is the wire form of an Error.
type envelope struct {
	Error *Error `json:"error"`
}

// WriteJSON writes err to w with the status implied by its kind.
// Unclassified errors are masked as internal so details don't leak.
func WriteJSON(w http.ResponseWriter, err error) {
	apiErr := &Error{}
	if !errors.As(err, &apiErr) {
		apiErr = Internal("internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(apiErr.Kind))
	_ = json.NewEncoder(w).Encode(envelope{Error: apiErr})
}

// FromResponse rebuilds a typed error from a non-2xx response body.
// Bodies that don't parse become internal errors carrying the status.
func FromResponse(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Kind != "" {
		return env.Error
	}
	return Internal("unexpected status %d", status)
}
