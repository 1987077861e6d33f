package repository

import (
	"context"

	"github.com/givers/contacts/internal/model"
)

// DB checks that the backing store is reachable.
type DB interface {
	Ping(ctx context.Context) error
}

// ContactRepository is the persistence interface for contacts.
// Implementations are safe for concurrent use.
type ContactRepository interface {
	DB

	// List returns every contact ordered by last name, then creation time.
	List(ctx context.Context) ([]*model.Contact, error)
	// Create stores c. c.ID and c.CreatedAt must already be set.
	Create(ctx context.Context, c *model.Contact) error
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	// Update replaces the stored contact with the same ID.
	Update(ctx context.Context, c *model.Contact) error
	Delete(ctx context.Context, id string) error
}
