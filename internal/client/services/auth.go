// Package services contains the client workflows: authentication, contacts
// and search, sending an image, and browsing and downloading sent and
// received images.
//
// This file defines the authentication service: register, login, the
// forced password change and logout.
package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// SessionController is implemented by view.Controller.
type SessionController interface {
	LoginSucceeded(ctx context.Context, token string, identity models.Identity) error
	CredentialChanged(ctx context.Context) error
	Logout(ctx context.Context) error
}

// AuthService covers the account lifecycle. Successful calls move the view
// state through the SessionController.
type AuthService interface {
	Register(ctx context.Context, username string) (string, error)
	Login(ctx context.Context, username string, password []byte) error
	ChangePassword(ctx context.Context, newPassword []byte) error
	Logout(ctx context.Context) error
}

type authService struct {
	client  client.Client
	session SessionController
	log     logging.Logger
}

// NewAuthService returns an AuthService reporting session changes to session.
func NewAuthService(c client.Client, session SessionController, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &authService{client: c, session: session, log: log}
}

// Register returns the temporary password issued by the server.
func (a *authService) Register(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrMissingUsername
	}

	pw, err := a.client.Register(ctx, username)
	if err != nil {
		a.log.Warn(ctx, "register failed", "username", username, "error", err)
		return "", err
	}
	a.log.Info(ctx, "registered", "username", username)
	return pw, nil
}

func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return ErrMissingCredentials
	}

	token, identity, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		a.log.Warn(ctx, "login failed", "username", username, "error", err)
		return err
	}

	a.log.Info(ctx, "logged in", "username", identity.Username, "must_change_password", identity.MustChangePassword)
	return a.session.LoginSucceeded(ctx, token, identity)
}

// ChangePassword replaces the temporary password and activates the session.
func (a *authService) ChangePassword(ctx context.Context, newPassword []byte) error {
	if len(newPassword) == 0 {
		return ErrMissingCredentials
	}

	if err := a.client.ChangePassword(ctx, string(newPassword)); err != nil {
		a.log.Warn(ctx, "change password failed", "error", err)
		return err
	}
	return a.session.CredentialChanged(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}
