// Package blobstore holds attachment file content. Records describing the
// content live in the repository package; this package only moves bytes.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when no content exists under the key.
var ErrNotFound = errors.New("content not found")

// Store persists content under slash-separated keys such as "<todoID>/<name>".
type Store interface {
	// Put writes exactly size bytes from r under key, replacing any
	// existing content. A short or long read is an error and leaves no
	// content behind.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the content. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	ValidateSetup(ctx context.Context) error
}

// Key builds the content key for an attachment.
func Key(todoID, name string) string {
	return todoID + "/" + name
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return cleaned, nil
}

func sizeMismatch(expected, got int64) error {
	return fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, got)
}
