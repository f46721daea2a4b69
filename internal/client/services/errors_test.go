package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: ErrMissingTarget, want: "choose a recipient first"},
		{name: "wrapped validation", err: fmt.Errorf("send: %w", ErrMissingFile), want: "choose an image first"},
		{name: "server message", err: fmt.Errorf("x: %w", &client.APIError{Status: 400, Message: "Receiver not found"}), want: "Receiver not found"},
		{name: "server without message", err: &client.APIError{Status: 500}, want: GenericFailureMessage},
		{name: "refused credential", err: &client.APIError{Status: 401}, want: SessionEndedMessage},
		{name: "transport", err: client.ErrUnavailable, want: GenericFailureMessage},
		{name: "other", err: errors.New("x"), want: GenericFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestValidationErrorsMatchSentinel(t *testing.T) {
	for _, err := range []error{ErrMissingTarget, ErrMissingFile, ErrNotImage, ErrMissingCredentials, ErrNoSelection, ErrNotInListing} {
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.NotErrorIs(t, ErrMissingTarget, ErrMissingFile)
}
