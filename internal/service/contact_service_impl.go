package service

import (
	"context"
	"errors"
	"time"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/repository"
	"github.com/givers/contacts/internal/search"
)

const maxCreateAttempts = 3

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo  repository.ContactRepository
	newID func() string
	now   func() time.Time
}

// NewContactService creates a ContactService backed by the given repository.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactServiceImpl{
		repo:  repo,
		newID: model.NewContactID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *contactServiceImpl) GetContacts(ctx context.Context, query string) ([]*model.Contact, error) {
	contacts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(contacts, query), nil
}

// CreateEmptyContact retries with a fresh ID if the store reports a collision.
func (s *contactServiceImpl) CreateEmptyContact(ctx context.Context) (*model.Contact, error) {
	var err error
	for range maxCreateAttempts {
		c := &model.Contact{ID: s.newID(), CreatedAt: s.now()}
		err = s.repo.Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return nil, err
		}
	}
	return nil, err
}

func (s *contactServiceImpl) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *contactServiceImpl) UpdateContact(ctx context.Context, id string, m model.ContactMutation) (*model.Contact, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *contactServiceImpl) DeleteContact(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
