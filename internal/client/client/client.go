package client

import (
	"context"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
)

// TokenSource yields the current bearer credential, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Client is the picdrop server API used by the client services.
type Client interface {
	// Register creates an account and returns its temporary password.
	Register(ctx context.Context, username string) (string, error)
	Login(ctx context.Context, username, password string) (string, models.Identity, error)
	ChangePassword(ctx context.Context, newPassword string) error

	Contacts(ctx context.Context) ([]models.Contact, error)
	DeleteContact(ctx context.Context, username string) error
	SearchUsers(ctx context.Context, query string) ([]models.Contact, error)

	SendImage(ctx context.Context, to, filename string, data []byte) (models.SendReceipt, error)
	ListSent(ctx context.Context) ([]models.MediaItem, error)
	ListReceived(ctx context.Context) ([]models.ReceivedGroup, error)

	// FetchProtected downloads the bytes behind ref, a fileUrl from a listing.
	FetchProtected(ctx context.Context, ref string) ([]byte, error)
	// ResolveURL turns ref into an absolute URL without credentials.
	ResolveURL(ref string) (string, error)
}
