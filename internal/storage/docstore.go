// Package storage keeps the raw uploaded files on disk. It is deliberately
// dumb: one flat directory, filenames already validated and unique by the
// documents table.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

// Save writes the file under the store directory and returns its path. Any
// path prefix on filename is stripped so uploads cannot escape the directory.
func (s *DocumentStore) Save(filename string, r io.Reader) (string, error) {
	path := s.Path(filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document file failed: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write document file failed: %w", err)
	}
	return path, nil
}

func (s *DocumentStore) Exists(filename string) bool {
	_, err := os.Stat(s.Path(filename))
	return err == nil
}

func (s *DocumentStore) Remove(filename string) error {
	if err := os.Remove(s.Path(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document file failed: %w", err)
	}
	return nil
}

func (s *DocumentStore) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}
