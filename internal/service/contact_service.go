package service

import (
	"context"

	"github.com/givers/contacts/internal/model"
)

// ContactService is the data-access collaborator used by the routes.
type ContactService interface {
	// GetContacts returns the contacts matching query, best match first.
	// An empty query returns every contact ordered by last name.
	GetContacts(ctx context.Context, query string) ([]*model.Contact, error)

	// CreateEmptyContact stores a new contact with only ID and CreatedAt set.
	CreateEmptyContact(ctx context.Context) (*model.Contact, error)

	// GetContact returns repository.ErrNotFound for unknown IDs.
	GetContact(ctx context.Context, id string) (*model.Contact, error)

	// UpdateContact merges m into the stored contact and returns the result.
	UpdateContact(ctx context.Context, id string, m model.ContactMutation) (*model.Contact, error)

	DeleteContact(ctx context.Context, id string) error
}
