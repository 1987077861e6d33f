package storage

import (
	"context"
	"io"
)

// Storage saves and deletes uploaded avatar images.
type Storage interface {
	// Save stores data under key and returns the public URL.
	// key is a unique path inside the storage, e.g. "avatars/<id>/<random>.jpg".
	Save(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)

	// Delete removes the file stored under key. Missing files are not an error.
	Delete(ctx context.Context, key string) error

	// KeyFromURL returns the key for a URL produced by Save, or false when
	// the URL points elsewhere.
	KeyFromURL(url string) (string, bool)
}
