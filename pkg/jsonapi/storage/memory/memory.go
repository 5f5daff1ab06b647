package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
)

type blob struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Backend is an in-memory implementation of storage.BlobStore
type Backend struct {
	mu        sync.RWMutex
	blobs     map[string]blob
	urlPrefix string
}

// New creates a new in-memory blob store. Download URLs are built from
// urlPrefix; with an empty prefix no URLs are handed out.
func New(urlPrefix string) *Backend {
	return &Backend{
		blobs:     make(map[string]blob),
		urlPrefix: urlPrefix,
	}
}

// Upload stores content under key
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader, params storage.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[key] = blob{data: data, contentType: contentType, updatedAt: time.Now().UTC()}
	return nil
}

// Download returns the content stored under key
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stored, exists := b.blobs[key]
	if !exists {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(stored.data)), nil
}

// Delete removes key
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.blobs[key]; !exists {
		return storage.ErrBlobNotFound
	}
	delete(b.blobs, key)
	return nil
}

// GetDownloadURL returns urlPrefix joined with key
func (b *Backend) GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error) {
	if b.urlPrefix == "" {
		return "", fmt.Errorf("direct download required for memory backend")
	}

	b.mu.RLock()
	_, exists := b.blobs[key]
	b.mu.RUnlock()
	if !exists {
		return "", storage.ErrBlobNotFound
	}

	u, err := url.JoinPath(b.urlPrefix, key)
	if err != nil {
		return "", err
	}
	if downloadFilename != "" {
		u += "?filename=" + url.QueryEscape(downloadFilename)
	}
	return u, nil
}

// GetObjectMeta returns the size and content type of key
func (b *Backend) GetObjectMeta(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stored, exists := b.blobs[key]
	if !exists {
		return nil, storage.ErrBlobNotFound
	}

	return &storage.ObjectMeta{
		Key:         key,
		Size:        int64(len(stored.data)),
		ContentType: stored.contentType,
		UpdatedAt:   stored.updatedAt,
	}, nil
}

// Keys returns the stored keys in sorted order
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.blobs))
	for k := range b.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
