package cli

import (
	"context"

	"github.com/dmitrijs2005/picdrop/internal/client/view"
	"github.com/dmitrijs2005/picdrop/internal/common"
)

// Register creates an account and prints the temporary password the
// server issued for it.
func (a *App) Register(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	pw, err := a.authService.Register(ctx, args[0])
	if err != nil {
		return err
	}

	printlnFn("Account created. Temporary password:", pw)
	printlnFn("Log in with it; you will be asked to choose a new one.")
	return nil
}

// Login prompts for the password of args[0]. The password is wiped before
// returning.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, args[0], password); err != nil {
		return err
	}

	if a.state() == view.Active {
		a.printContacts()
	}
	return nil
}

// ChangePassword replaces the temporary password.
func (a *App) ChangePassword(ctx context.Context, args []string) error {
	password, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Repeat new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		printlnFn("Passwords do not match.")
		return nil
	}

	if err := a.authService.ChangePassword(ctx, password); err != nil {
		return err
	}

	printlnFn("Password changed.")
	if a.state() == view.Active {
		a.printContacts()
	}
	return nil
}

// Logout ends the session locally.
func (a *App) Logout(ctx context.Context, args []string) error {
	return a.authService.Logout(ctx)
}
