// Package file implements the Local Cache as a flat JSON file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"todosync/backend"
	"todosync/internal/cache"
)

// TypeName is the cache backend type used in configuration
const TypeName = "file"

// Store keeps tasks in memory and persists them as a JSON array of records.
type Store struct {
	backend.TaskIndex

	baseDir string
	skipped int
}

// NewStore creates an empty store. Relative destinations are resolved
// against baseDir, or against the XDG cache directory when baseDir is empty.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// NewFromOptions adapts NewStore to backend.StoreConstructor
func NewFromOptions(opts backend.StoreOptions) (backend.TaskStore, error) {
	return NewStore(opts.CacheDir), nil
}

// Register adds the file backend to a registry
func Register(r *backend.Registry) {
	r.Register(TypeName, NewFromOptions)
}

func (s *Store) Type() string { return TypeName }

func (s *Store) Close() error { return nil }

// Skipped returns how many records the last Load dropped as malformed
func (s *Store) Skipped() int { return s.skipped }

// Path returns the file a destination resolves to
func (s *Store) Path(destination string) (string, error) {
	path, err := cache.ResolvePath(s.baseDir, destination)
	if err != nil {
		return "", &backend.StoreError{Op: "Resolve", Destination: destination, Err: backend.ErrInvalidPath, Cause: err}
	}
	return path, nil
}

// Load replaces the contents with the file at destination
func (s *Store) Load(destination string) error {
	path, err := s.Path(destination)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return &backend.StoreError{Op: "Load", Destination: destination, Err: backend.ErrInvalidPath, Cause: err}
	}
	if info.IsDir() {
		return &backend.StoreError{
			Op:          "Load",
			Destination: destination,
			Err:         backend.ErrInvalidPath,
			Cause:       fmt.Errorf("%s is a directory", path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &backend.StoreError{Op: "Load", Destination: destination, Err: backend.ErrInvalidPath, Cause: err}
	}

	tasks, skipped, err := backend.DecodeRecords(data)
	if err != nil {
		return &backend.StoreError{Op: "Load", Destination: destination, Err: backend.ErrUnparsable, Cause: err}
	}

	s.Reset(tasks)
	s.skipped = skipped
	return nil
}

// Save writes the contents to destination, replacing the file atomically
func (s *Store) Save(destination string) error {
	path, err := s.Path(destination)
	if err != nil {
		return err
	}

	data, err := backend.EncodeRecords(s.Items())
	if err != nil {
		return &backend.StoreError{Op: "Save", Destination: destination, Err: backend.ErrUnparsable, Cause: err}
	}

	if err := writeAtomic(path, data); err != nil {
		return &backend.StoreError{Op: "Save", Destination: destination, Err: backend.ErrInvalidPath, Cause: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
