package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/picdrop/internal/client/target"
	"github.com/dmitrijs2005/picdrop/internal/client/view"
)

// Contacts prints the contacts picker; "refresh" reloads it from the server.
func (a *App) Contacts(ctx context.Context, args []string) error {
	var err error
	if len(args) > 0 && args[0] == "refresh" {
		err = a.controller.Refresh(ctx, view.TabContacts)
	} else {
		err = a.controller.Open(ctx, view.TabContacts)
	}
	if err != nil {
		return err
	}
	a.printContacts()
	return nil
}

func (a *App) printContacts() {
	printRows("Recent contacts:", "No contacts yet. Use search to find people.", a.selector.Rows())
}

func printRows(title, empty string, rows []target.Row) {
	if len(rows) == 0 {
		printlnFn(empty)
		return
	}
	printlnFn(title)
	for _, r := range rows {
		marker := " "
		if r.Selected {
			marker = "*"
		}
		printlnFn(" ", marker, r.Username)
	}
}

// Search looks users up by name and prints the results picker.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if _, err := a.contactsService.Search(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	printRows("Search results:", "Nobody found.", a.selector.SearchRows())
	return nil
}

// Select sets the send target. Any username is accepted, including search
// results that are not contacts yet.
func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	a.selector.Select(args[0])
	printlnFn("Sending to", args[0])
	return nil
}

func (a *App) Unselect(ctx context.Context, args []string) error {
	a.selector.Clear()
	return nil
}

// DeleteContact removes a contact and reloads the list.
func (a *App) DeleteContact(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.contactsService.Delete(ctx, args[0]); err != nil {
		return err
	}
	printlnFn("Removed", args[0])
	a.printContacts()
	return nil
}
