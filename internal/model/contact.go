package model

import (
	"cmp"
	"encoding/base32"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contact is a person in the address book. Every field except ID is optional.
type Contact struct {
	ID        string    `json:"id"`
	First     string    `json:"first,omitempty"`
	Last      string    `json:"last,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Twitter   string    `json:"twitter,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasName reports whether either the first or the last name is set.
func (c *Contact) HasName() bool {
	return c.First != "" || c.Last != ""
}

// FullName joins first and last name with a single space.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.First + " " + c.Last)
}

// ContactMutation carries a partial update. Nil fields are left untouched.
type ContactMutation struct {
	First    *string
	Last     *string
	Avatar   *string
	Twitter  *string
	Notes    *string
	Favorite *bool
}

// Apply merges the non-nil fields of m into c.
func (m ContactMutation) Apply(c *Contact) {
	if m.First != nil {
		c.First = *m.First
	}
	if m.Last != nil {
		c.Last = *m.Last
	}
	if m.Avatar != nil {
		c.Avatar = *m.Avatar
	}
	if m.Twitter != nil {
		c.Twitter = *m.Twitter
	}
	if m.Notes != nil {
		c.Notes = *m.Notes
	}
	if m.Favorite != nil {
		c.Favorite = *m.Favorite
	}
}

var idEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// NewContactID returns a URL-safe identifier derived from a UUIDv7, so IDs sort
// roughly by creation time.
func NewContactID() string {
	id := uuid.Must(uuid.NewV7())
	return idEncoding.EncodeToString(id[:])
}

// SortContacts orders contacts by last name, then by creation time.
func SortContacts(contacts []*Contact) {
	slices.SortStableFunc(contacts, func(a, b *Contact) int {
		if c := cmp.Compare(a.Last, b.Last); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
