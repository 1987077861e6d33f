// Package seed fills an empty contact store with demo data.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/givers/contacts/internal/model"
	"github.com/givers/contacts/internal/repository"
)

//go:embed contacts.yaml
var defaultContacts []byte

// Entry is one contact in a seed document.
type Entry struct {
	ID       string `yaml:"id"`
	First    string `yaml:"first"`
	Last     string `yaml:"last"`
	Avatar   string `yaml:"avatar"`
	Twitter  string `yaml:"twitter"`
	Notes    string `yaml:"notes"`
	Favorite bool   `yaml:"favorite"`
}

// Parse decodes a YAML list of entries.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return entries, nil
}

// Load reads entries from path, or the built-in demo data when path is empty.
func Load(path string) ([]Entry, error) {
	if path == "" {
		return Parse(bytes.NewReader(defaultContacts))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Apply creates the entries when repo holds no contacts yet, returning how many
// were created. CreatedAt is spaced one millisecond apart in document order.
func Apply(ctx context.Context, repo repository.ContactRepository, entries []Entry) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	start := time.Now().UTC()
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = model.NewContactID()
		}
		c := &model.Contact{
			ID:        id,
			First:     e.First,
			Last:      e.Last,
			Avatar:    e.Avatar,
			Twitter:   e.Twitter,
			Notes:     e.Notes,
			Favorite:  e.Favorite,
			CreatedAt: start.Add(time.Duration(i) * time.Millisecond),
		}
		if err := repo.Create(ctx, c); err != nil {
			return i, fmt.Errorf("seed: create %q: %w", id, err)
		}
	}
	return len(entries), nil
}
