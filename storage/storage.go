// Package storage holds uploaded files. Keys are slash separated paths
// relative to the upload root, such as "2024/05/<sha1>.png".
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored file
type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is where uploaded files live
type Store interface {
	// Put writes data under key, replacing anything already there
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get opens the object for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)

	// Stat returns the object's metadata without reading it
	Stat(ctx context.Context, key string) (Object, error)

	Delete(ctx context.Context, key string) error

	// List returns every object in the store
	List(ctx context.Context) ([]Object, error)
}

// CleanKey normalises a key and rejects any that would escape the store root
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", errors.New("storage: empty key")
	}

	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("storage: invalid key")
	}

	return clean, nil
}
