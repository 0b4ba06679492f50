package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultPublicRoot is the directory that web paths like /uploads/images/x.png are served from.
const defaultPublicRoot = "public"

// ErrTooLarge is returned when a file exceeds the caller's read limit.
var ErrTooLarge = errors.New("file exceeds read limit")

// UploadStore is the read contract the ebook assembler needs from the
// upload tree. Names are slash-separated and relative to the public root,
// e.g. "uploads/images/cover.png".
type UploadStore interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string, limit int64) ([]byte, error)
}

// LocalUploadStore implements UploadStore over a directory on the local file system.
// All access goes through os.Root so names cannot escape the base path.
type LocalUploadStore struct {
	basePath string
}

// NewLocalUploadStore creates a new LocalUploadStore.
// If basePath is empty, it defaults to defaultPublicRoot.
func NewLocalUploadStore(basePath string) *LocalUploadStore {
	if basePath == "" {
		basePath = defaultPublicRoot
	}
	return &LocalUploadStore{basePath: basePath}
}

// BasePath returns the directory the store reads from.
func (s *LocalUploadStore) BasePath() string {
	return s.basePath
}

// Stat returns file info for name. Missing files return an error matching fs.ErrNotExist.
func (s *LocalUploadStore) Stat(name string) (fs.FileInfo, error) {
	root, err := os.OpenRoot(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload root '%s': %w", s.basePath, err)
	}
	defer root.Close()

	info, err := root.Stat(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("'%s' is a directory: %w", name, fs.ErrNotExist)
	}
	return info, nil
}

// ReadFile reads name fully. If limit > 0 and the file is larger, ErrTooLarge is returned.
func (s *LocalUploadStore) ReadFile(name string, limit int64) ([]byte, error) {
	root, err := os.OpenRoot(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload root '%s': %w", s.basePath, err)
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("'%s' is larger than %d bytes: %w", name, limit, ErrTooLarge)
	}
	return data, nil
}
