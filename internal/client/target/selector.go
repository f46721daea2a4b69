// Package target keeps the single "current send target" shared by the
// contacts picker and the search results picker.
package target

import (
	"sync"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
)

// Row is one picker entry. Selected marks the current target.
type Row struct {
	Username string
	Selected bool
}

// Stager reports whether a file is staged for sending.
type Stager interface {
	HasStagedFile() bool
}

// Selector holds the current send target and the rows of both pickers.
// It is safe for concurrent use.
type Selector struct {
	mu          sync.Mutex
	current     string
	hasCurrent  bool
	contacts    []Row
	results     []Row
	stager      Stager
	sendEnabled bool
}

// NewSelector returns a selector with no target.
func NewSelector() *Selector {
	return &Selector{}
}

// SetStager wires the send workflow in. The enabled flag is recomputed.
func (s *Selector) SetStager(st Stager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stager = st
	s.recomputeLocked()
}

// Select makes username the current target. Users found by search need not
// be contacts.
func (s *Selector) Select(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = username
	s.hasCurrent = username != ""
	s.highlightLocked()
	s.recomputeLocked()
}

// Clear drops the current target.
func (s *Selector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	s.hasCurrent = false
	s.highlightLocked()
	s.recomputeLocked()
}

// Current returns the selected username, if any.
func (s *Selector) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCurrent
}

// SetContacts replaces the contacts picker rows, keeping server order.
func (s *Selector) SetContacts(contacts []models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = s.rowsLocked(contacts)
}

// SetSearchResults replaces the search picker rows.
func (s *Selector) SetSearchResults(users []models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = s.rowsLocked(users)
}

// ContactRemoved drops username from the contacts rows and clears the
// selection if it was the current target.
func (s *Selector) ContactRemoved(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.contacts[:0]
	for _, r := range s.contacts {
		if r.Username != username {
			kept = append(kept, r)
		}
	}
	s.contacts = kept

	if s.hasCurrent && s.current == username {
		s.current = ""
		s.hasCurrent = false
		s.highlightLocked()
	}
	s.recomputeLocked()
}

// Rows returns a copy of the contacts picker.
func (s *Selector) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.contacts...)
}

// SearchRows returns a copy of the search picker.
func (s *Selector) SearchRows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.results...)
}

// SendEnabled is true when a target is chosen and a file is staged.
func (s *Selector) SendEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendEnabled
}

// Recompute refreshes SendEnabled after the staged file changed.
func (s *Selector) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

func (s *Selector) rowsLocked(users []models.Contact) []Row {
	rows := make([]Row, len(users))
	for i, u := range users {
		rows[i] = Row{Username: u.Username, Selected: s.hasCurrent && u.Username == s.current}
	}
	return rows
}

func (s *Selector) highlightLocked() {
	for i := range s.contacts {
		s.contacts[i].Selected = s.hasCurrent && s.contacts[i].Username == s.current
	}
	for i := range s.results {
		s.results[i].Selected = s.hasCurrent && s.results[i].Username == s.current
	}
}

func (s *Selector) recomputeLocked() {
	staged := s.stager != nil && s.stager.HasStagedFile()
	s.sendEnabled = s.hasCurrent && staged
}
