// Package local keeps audit snapshots on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// BlobStore writes snapshots below a root directory.
type BlobStore struct {
	root string
}

var _ crawler.BlobStore = (*BlobStore)(nil)

// New prepares root, creating it when missing, and checks that it is writable.
func New(root string) (*BlobStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("blob root directory is required")
	}
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(root, 0o750); err != nil {
			return nil, fmt.Errorf("create blob root: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat blob root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("blob root %s is not a directory", root)
	}

	check, err := os.CreateTemp(root, ".writecheck-*")
	if err != nil {
		return nil, fmt.Errorf("blob root not writable: %w", err)
	}
	name := check.Name()
	_ = check.Close()
	if err := os.Remove(name); err != nil {
		return nil, fmt.Errorf("remove write check file: %w", err)
	}
	return &BlobStore{root: filepath.Clean(root)}, nil
}

// PutObject writes data to root/path and returns a file:// URI. Paths escaping root are
// rejected.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	target, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open snapshot: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return "file://" + target, nil
}

func (s *BlobStore) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("object path is required")
	}
	target := filepath.Clean(filepath.Join(s.root, path))
	if !strings.HasPrefix(target, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes the blob root", path)
	}
	return target, nil
}
