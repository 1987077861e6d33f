package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/givers/contacts/internal/model"
)

// RedisContactRepository stores each contact as a hash at {prefix}:contact:{id}
// and tracks the IDs in the set {prefix}:contacts.
type RedisContactRepository struct {
	rdb    *redis.Client
	prefix string
}

var _ ContactRepository = (*RedisContactRepository)(nil)

const maxTxAttempts = 3

// NewRedisContactRepository creates a RedisContactRepository. An empty prefix
// defaults to "contacts".
func NewRedisContactRepository(rdb *redis.Client, prefix string) *RedisContactRepository {
	if prefix == "" {
		prefix = "contacts"
	}
	return &RedisContactRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisContactRepository) setKey() string { return r.prefix + ":contacts" }

func (r *RedisContactRepository) contactKey(id string) string { return r.prefix + ":contact:" + id }

// Close closes the underlying client.
func (r *RedisContactRepository) Close() error {
	return r.rdb.Close()
}

func (r *RedisContactRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func contactToHash(c *model.Contact) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"first":      c.First,
		"last":       c.Last,
		"avatar":     c.Avatar,
		"twitter":    c.Twitter,
		"notes":      c.Notes,
		"favorite":   strconv.FormatBool(c.Favorite),
		"created_at": c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func hashToContact(h map[string]string) (*model.Contact, error) {
	c := &model.Contact{
		ID:      h["id"],
		First:   h["first"],
		Last:    h["last"],
		Avatar:  h["avatar"],
		Twitter: h["twitter"],
		Notes:   h["notes"],
	}
	if v := h["favorite"]; v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid favorite %q: %w", v, err)
		}
		c.Favorite = fav
	}
	if v := h["created_at"]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", v, err)
		}
		c.CreatedAt = ts
	}
	return c, nil
}

// List loads every contact in one pipeline and sorts them.
func (r *RedisContactRepository) List(ctx context.Context) ([]*model.Contact, error) {
	ids, err := r.rdb.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read contact ids from Redis: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.contactKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read contacts from Redis: %w", err)
	}

	contacts := make([]*model.Contact, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		c, err := hashToContact(h)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	model.SortContacts(contacts)
	return contacts, nil
}

// Create writes the hash and indexes the ID in one MULTI block. The hash is
// authoritative; a stale ID left in the set without its hash does not block
// a later Create.
func (r *RedisContactRepository) Create(ctx context.Context, c *model.Contact) error {
	key := r.contactKey(c.ID)
	err := r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check contact id: %w", err)
		}
		if n > 0 {
			return ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, contactToHash(c))
			pipe.SAdd(ctx, r.setKey(), c.ID)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, ErrDuplicateID) {
		return fmt.Errorf("failed to write contact to Redis: %w", err)
	}
	return err
}

func (r *RedisContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	h, err := r.rdb.HGetAll(ctx, r.contactKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read contact from Redis: %w", err)
	}
	// HGetAll returns an empty map for missing keys
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return hashToContact(h)
}

func (r *RedisContactRepository) Update(ctx context.Context, c *model.Contact) error {
	key := r.contactKey(c.ID)
	err := r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check contact id: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		// EXEC aborts if a Delete touched the key since WATCH
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, contactToHash(c))
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to write contact to Redis: %w", err)
	}
	return err
}

func (r *RedisContactRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.contactKey(id))
		pipe.SRem(ctx, r.setKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete contact from Redis: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// watch runs fn under WATCH on keys, retrying when a concurrent write to a
// watched key aborts the transaction.
func (r *RedisContactRepository) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range maxTxAttempts {
		err := r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}
