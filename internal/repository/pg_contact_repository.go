package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givers/contacts/internal/model"
)

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	pool *pgxpool.Pool
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

var _ ContactRepository = (*PgContactRepository)(nil)

const contactSelectCols = `id, first, last, avatar, twitter, notes, favorite, created_at`

func scanContact(scan func(...any) error) (*model.Contact, error) {
	var c model.Contact
	if err := scan(&c.ID, &c.First, &c.Last, &c.Avatar, &c.Twitter, &c.Notes, &c.Favorite, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Ping checks the database connection.
func (r *PgContactRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// List returns all contacts ordered by last name, then creation time.
func (r *PgContactRepository) List(ctx context.Context) ([]*model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactSelectCols+` FROM contacts ORDER BY last COLLATE "C", created_at`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Create inserts a contacts row.
func (r *PgContactRepository) Create(ctx context.Context, c *model.Contact) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contacts (`+contactSelectCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.First, c.Last, c.Avatar, c.Twitter, c.Notes, c.Favorite, c.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// FindByID returns the contact with the given ID.
func (r *PgContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contactSelectCols+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return c, nil
}

// Update overwrites every mutable column of the contact.
func (r *PgContactRepository) Update(ctx context.Context, c *model.Contact) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contacts
		 SET first=$1, last=$2, avatar=$3, twitter=$4, notes=$5, favorite=$6
		 WHERE id=$7`,
		c.First, c.Last, c.Avatar, c.Twitter, c.Notes, c.Favorite, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the contact with the given ID.
func (r *PgContactRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
