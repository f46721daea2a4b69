// Package view owns the top-level screen state of the client: which screen
// is shown and which tab of the main screen is open.
package view

import "github.com/dmitrijs2005/picdrop/internal/client/models"

// State is the top-level screen.
type State int

const (
	Unauthenticated State = iota
	MustChangeCredential
	Active
)

func (s State) String() string {
	switch s {
	case MustChangeCredential:
		return "must-change-credential"
	case Active:
		return "active"
	default:
		return "unauthenticated"
	}
}

// StateOf derives the screen from the session alone.
func StateOf(s models.Session) State {
	if !s.Authenticated() {
		return Unauthenticated
	}
	if s.Identity.MustChangePassword {
		return MustChangeCredential
	}
	return Active
}

// Tab is a section of the Active screen.
type Tab int

const (
	TabContacts Tab = iota
	TabSent
	TabReceived
)

func (t Tab) String() string {
	switch t {
	case TabSent:
		return "sent"
	case TabReceived:
		return "received"
	default:
		return "contacts"
	}
}

// holdsHandles reports whether the tab renders protected images.
func (t Tab) holdsHandles() bool {
	return t == TabSent || t == TabReceived
}
