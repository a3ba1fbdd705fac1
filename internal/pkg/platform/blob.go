package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// BlobStore holds uploaded evidence images and documents.
type BlobStore interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error
	PublicURL(bucket, path string) string
	Delete(ctx context.Context, bucket, path string) error
	EnsureBuckets(ctx context.Context, buckets ...string) error
}

// MemoryBlobStore keeps blobs in memory. Used when S3 is not configured.
type MemoryBlobStore struct {
	baseURL string
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemoryBlobStore) Upload(ctx context.Context, bucket, path string, body io.Reader, _ int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+path] = data
	m.types[bucket+"/"+path] = contentType
	return nil
}

func (m *MemoryBlobStore) Delete(ctx context.Context, bucket, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+path)
	delete(m.types, bucket+"/"+path)
	return nil
}

func (m *MemoryBlobStore) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", m.baseURL, bucket, path)
}

func (m *MemoryBlobStore) EnsureBuckets(context.Context, ...string) error {
	return nil
}

// Object returns a stored blob and its content type.
func (m *MemoryBlobStore) Object(bucket, path string) (io.Reader, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(data), m.types[bucket+"/"+path], true
}

// Keys lists stored object keys (bucket/path) for a bucket.
func (m *MemoryBlobStore) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/") {
			keys = append(keys, k)
		}
	}
	return keys
}
