package services

import (
	"errors"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
)

// ErrValidation is matched by every client-side input check. Such failures
// never reach the network.
var ErrValidation = errors.New("validation failed")

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrMissingTarget      error = &validationError{"choose a recipient first"}
	ErrMissingFile        error = &validationError{"choose an image first"}
	ErrNotImage           error = &validationError{"the file is not an image"}
	ErrMissingCredentials error = &validationError{"username and password are required"}
	ErrMissingUsername    error = &validationError{"username is required"}
	ErrNoSelection        error = &validationError{"no images selected"}
	ErrNotInListing       error = &validationError{"the image is not in the received list"}
)

const (
	GenericFailureMessage = "network error, please try again"
	SessionEndedMessage   = "your session has ended, please log in again"
)

// UserMessage renders err for the user: validation messages and the
// server's own message are shown verbatim, anything else gets a generic
// text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) {
		var ve *validationError
		if errors.As(err, &ve) {
			return ve.msg
		}
		return err.Error()
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return SessionEndedMessage
	}
	return GenericFailureMessage
}
