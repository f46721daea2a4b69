package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/client/target"
	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// ContactsService feeds both pickers of the target selector.
type ContactsService interface {
	Load(ctx context.Context) ([]models.Contact, error)
	Delete(ctx context.Context, username string) error
	Search(ctx context.Context, query string) ([]models.Contact, error)
}

type contactsService struct {
	client   client.Client
	selector *target.Selector
	log      logging.Logger
}

// NewContactsService returns a ContactsService feeding selector.
func NewContactsService(c client.Client, selector *target.Selector, log logging.Logger) ContactsService {
	if log == nil {
		log = logging.Discard()
	}
	return &contactsService{client: c, selector: selector, log: log}
}

// Load fetches the contacts, most recent first, and re-renders the picker.
func (s *contactsService) Load(ctx context.Context) ([]models.Contact, error) {
	contacts, err := s.client.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	s.selector.SetContacts(contacts)
	s.log.Debug(ctx, "contacts loaded", "count", len(contacts))
	return contacts, nil
}

// Delete removes a contact and reloads the list. Removing the current
// target clears the selection.
func (s *contactsService) Delete(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrMissingUsername
	}
	if err := s.client.DeleteContact(ctx, username); err != nil {
		return err
	}
	s.selector.ContactRemoved(username)

	if _, err := s.Load(ctx); err != nil {
		s.log.Warn(ctx, "reload contacts after delete", "error", err)
	}
	return nil
}

// Search looks users up by name. An empty query clears the results without
// a request.
func (s *contactsService) Search(ctx context.Context, query string) ([]models.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.selector.SetSearchResults(nil)
		return nil, nil
	}

	users, err := s.client.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	s.selector.SetSearchResults(users)
	return users, nil
}
