package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable         = errors.New("server unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// APIError is a non-success answer from the server. Message is the server's
// "error" field and may be empty.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Unwrap maps the status onto ErrUnauthorized or ErrResourceUnavailable.
func (e *APIError) Unwrap() error {
	if e.Unauthorized() {
		return ErrUnauthorized
	}
	return ErrResourceUnavailable
}

// Unauthorized reports whether the status means the credential was refused.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
