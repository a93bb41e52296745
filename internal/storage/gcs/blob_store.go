// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
	// CDNPrefix, when set, is prepended to the object key to form the
	// public URI returned by PutObject. Without it a gs:// URI is
	// returned.
	CDNPrefix string
}

// BlobStore writes artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.CDNPrefix != "" && !strings.HasSuffix(cfg.CDNPrefix, "/") {
		cfg.CDNPrefix += "/"
	}
	return &BlobStore{
		client: client,
		cfg:    cfg,
	}, nil
}

// PutObject uploads data to the configured bucket and returns the
// public URI for the stored object.
func (s *BlobStore) PutObject(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key is required")
	}
	writer := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return s.PublicURI(key), nil
}

// PublicURI returns the URI under which key is served once uploaded.
func (s *BlobStore) PublicURI(key string) string {
	if s.cfg.CDNPrefix != "" {
		return s.cfg.CDNPrefix + key
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, key)
}
