// Package artifact stores prerendered pages: on the local filesystem or in
// an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Sentinel errors for artifact operations.
var (
	ErrNotFound      = errors.New("artifact: not found")
	ErrAccessDenied  = errors.New("artifact: access denied")
	ErrInvalidName   = errors.New("artifact: invalid name")
	ErrInvalidConfig = errors.New("artifact: invalid configuration")
	ErrUploadFailed  = errors.New("artifact: upload failed")
)

// Store reads and writes artifacts by slash separated name.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

// cleanName rejects absolute names and names escaping the store.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidName
	}
	return clean, nil
}
