package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore stores artifacts below a directory.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir. The directory is created on
// the first Put.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Root returns the directory of the store.
func (s *DirStore) Root() string {
	return s.root
}

// Put writes data to name, creating parent directories.
func (s *DirStore) Put(_ context.Context, name string, data []byte, _ string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	target := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

// Get opens name.
func (s *DirStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
