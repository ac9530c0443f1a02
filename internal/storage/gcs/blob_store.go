// Package gcs stores audit snapshots in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Config names the bucket and an optional object prefix.
type Config struct {
	Bucket string
	Prefix string
}

// BlobStore uploads objects to one bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ crawler.BlobStore = (*BlobStore)(nil)

// New returns a store writing to cfg.Bucket through client.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, &crawler.ConfigurationError{Reason: "blob.gcs.bucket is required"}
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName joins the configured prefix and p.
func (s *BlobStore) ObjectName(p string) string {
	if s.prefix == "" {
		return strings.TrimLeft(p, "/")
	}
	return path.Join(s.prefix, p)
}

// PutObject uploads data and returns its gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, p string, contentType string, data io.Reader) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("object path is required")
	}
	name := s.ObjectName(p)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close: %v)", name, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish upload %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}
