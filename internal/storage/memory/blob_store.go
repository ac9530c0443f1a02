// Package memory holds in-process stores for development runs and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Blob is one stored object.
type Blob struct {
	ContentType string
	Data        []byte
}

// BlobStore keeps objects in a map and hands out memory:// URIs.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

var _ crawler.BlobStore = (*BlobStore)(nil)

// NewBlobStore returns an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]Blob)}
}

// PutObject implements crawler.BlobStore.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, data io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("object path is required")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = Blob{ContentType: contentType, Data: b}
	return "memory://" + path, nil
}

// Get returns the object stored at path.
func (s *BlobStore) Get(path string) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	return b, ok
}

// Paths lists stored object paths in sorted order.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
