package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/givers/contacts/internal/model"
)

var contactsBucket = []byte("contacts")

// BoltContactRepository stores contacts as JSON values in a single bolt
// bucket keyed by ID.
type BoltContactRepository struct {
	db *bolt.DB
}

var _ ContactRepository = (*BoltContactRepository)(nil)

// OpenBoltContactRepository opens (or creates) the database file at path.
func OpenBoltContactRepository(path string) (*BoltContactRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(contactsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt create bucket: %w", err)
	}
	return &BoltContactRepository{db: db}, nil
}

// Close releases the file lock.
func (r *BoltContactRepository) Close() error {
	return r.db.Close()
}

func (r *BoltContactRepository) Ping(context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(contactsBucket) == nil {
			return fmt.Errorf("bolt: bucket %s missing", contactsBucket)
		}
		return nil
	})
}

func (r *BoltContactRepository) List(context.Context) ([]*model.Contact, error) {
	var out []*model.Contact
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).ForEach(func(_, v []byte) error {
			c := &model.Contact{}
			if err := json.Unmarshal(v, c); err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt list contacts: %w", err)
	}
	model.SortContacts(out)
	return out, nil
}

func (r *BoltContactRepository) put(c *model.Contact, mustExist bool) error {
	value, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(contactsBucket)
		exists := b.Get([]byte(c.ID)) != nil
		switch {
		case mustExist && !exists:
			return ErrNotFound
		case !mustExist && exists:
			return ErrDuplicateID
		}
		return b.Put([]byte(c.ID), value)
	})
}

func (r *BoltContactRepository) Create(_ context.Context, c *model.Contact) error {
	if err := r.put(c, false); err != nil {
		return fmt.Errorf("bolt create contact: %w", err)
	}
	return nil
}

func (r *BoltContactRepository) FindByID(_ context.Context, id string) (*model.Contact, error) {
	var c *model.Contact
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(contactsBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		c = &model.Contact{}
		return json.Unmarshal(v, c)
	})
	if err != nil {
		return nil, fmt.Errorf("bolt find contact: %w", err)
	}
	return c, nil
}

func (r *BoltContactRepository) Update(_ context.Context, c *model.Contact) error {
	if err := r.put(c, true); err != nil {
		return fmt.Errorf("bolt update contact: %w", err)
	}
	return nil
}

func (r *BoltContactRepository) Delete(_ context.Context, id string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(contactsBucket)
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("bolt delete contact: %w", err)
	}
	return nil
}
