// Package receipts handles uploaded receipt images: storing them in
// object storage and scanning them into expense records.
package receipts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ObjectStore persists raw receipt images. Save returns the URI the scan
// job later fetches from.
type ObjectStore interface {
	Save(ctx context.Context, userID, mimeType string, data []byte) (string, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Close() error
}

// GCSStore is the Google Cloud Storage implementation with a shared
// client.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates an object store over one bucket. Credentials come
// from Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Save uploads the image under receipts/<user>/<uuid> and returns its
// gs:// URI.
func (s *GCSStore) Save(ctx context.Context, userID, mimeType string, data []byte) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s", userID, uuid.New().String())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Save: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Save: finalize upload: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Fetch downloads the image bytes at a gs:// URI.
func (s *GCSStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := splitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open reader for %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read object: %w", err)
	}
	return data, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func splitGCSURI(uri string) (bucket, object string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// MemoryStore keeps images in memory for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Save implements the ObjectStore interface.
func (s *MemoryStore) Save(ctx context.Context, userID, mimeType string, data []byte) (string, error) {
	uri := fmt.Sprintf("mem://receipts/%s/%s", userID, uuid.New().String())

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[uri] = cp
	return uri, nil
}

// Fetch implements the ObjectStore interface.
func (s *MemoryStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[uri]
	if !ok {
		return nil, fmt.Errorf("Fetch: object not found: %s", uri)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Close implements the ObjectStore interface.
func (s *MemoryStore) Close() error {
	return nil
}

var _ ObjectStore = (*GCSStore)(nil)
var _ ObjectStore = (*MemoryStore)(nil)
