package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/givers/contacts/internal/model"
)

// MemoryContactRepository keeps contacts in process memory.
type MemoryContactRepository struct {
	mu       sync.Mutex
	index    map[string]int
	contacts []*model.Contact
}

var _ ContactRepository = (*MemoryContactRepository)(nil)

// NewMemoryContactRepository creates a store holding copies of cs.
func NewMemoryContactRepository(cs ...*model.Contact) *MemoryContactRepository {
	r := &MemoryContactRepository{index: make(map[string]int, len(cs))}
	for _, c := range cs {
		cp := *c
		r.index[c.ID] = len(r.contacts)
		r.contacts = append(r.contacts, &cp)
	}
	return r
}

func (r *MemoryContactRepository) Ping(context.Context) error { return nil }

func (r *MemoryContactRepository) List(context.Context) ([]*model.Contact, error) {
	r.mu.Lock()
	out := make([]*model.Contact, len(r.contacts))
	for i, c := range r.contacts {
		cp := *c
		out[i] = &cp
	}
	r.mu.Unlock()

	model.SortContacts(out)
	return out, nil
}

func (r *MemoryContactRepository) Create(_ context.Context, c *model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[c.ID]; ok {
		return ErrDuplicateID
	}
	cp := *c
	r.index[c.ID] = len(r.contacts)
	r.contacts = append(r.contacts, &cp)
	return nil
}

func (r *MemoryContactRepository) FindByID(_ context.Context, id string) (*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.contacts[i]
	return &cp, nil
}

func (r *MemoryContactRepository) Update(_ context.Context, c *model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[c.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *c
	r.contacts[i] = &cp
	return nil
}

func (r *MemoryContactRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return ErrNotFound
	}
	r.contacts = slices.Delete(r.contacts, i, i+1)
	delete(r.index, id)
	for j := i; j < len(r.contacts); j++ {
		r.index[r.contacts[j].ID] = j
	}
	return nil
}
