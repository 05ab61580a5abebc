package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSessionExpired is returned when a request failed authentication and the
// credentials could not be refreshed. Callers should send the user to login.
var ErrSessionExpired = errors.New("session expired")

// HTTPError is a non-2xx response that no more specific error covers.
type HTTPError struct {
	Status  int
	Payload map[string]any
	Body    []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, ErrorMessage(e.Payload, "request failed"))
}

// Message returns the server supplied message, or fallback.
func (e *HTTPError) Message(fallback string) string {
	return ErrorMessage(e.Payload, fallback)
}

// AuthError covers failed logins, registrations and refreshes.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is a client-side rejection raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// TransferError is a transfer the server refused or that could not be sent.
type TransferError struct {
	Message string
	Err     error
}

func (e *TransferError) Error() string { return e.Message }
func (e *TransferError) Unwrap() error { return e.Err }

// ErrorMessage picks a human readable message out of an error payload,
// checking keys in order. With no keys the auth order applies:
// message, detail, error.
func ErrorMessage(payload map[string]any, fallback string, keys ...string) string {
	if len(keys) == 0 {
		keys = []string{"message", "detail", "error"}
	}
	for _, k := range keys {
		if s := stringify(payload[k]); s != "" {
			return s
		}
	}
	// field errors: {"email": ["already taken"]}
	for _, v := range payload {
		if s := stringify(v); s != "" && len(payload) == 1 {
			return s
		}
	}
	return fallback
}

// TransferMessage applies the transfer order: error, then message.
func TransferMessage(payload map[string]any, fallback string) string {
	return ErrorMessage(payload, fallback, "error", "message", "detail")
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func decodePayload(body []byte) map[string]any {
	var m map[string]any
	if len(body) == 0 || json.Unmarshal(body, &m) != nil {
		return nil
	}
	return m
}

// PayloadOf returns the decoded error payload when err carries one.
func PayloadOf(err error) map[string]any {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Payload
	}
	return nil
}
