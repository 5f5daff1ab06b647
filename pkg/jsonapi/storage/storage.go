package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrBlobNotFound indicates no blob is stored under a key
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore stores the binary payload of file fields
type BlobStore interface {
	// Upload stores the content read from reader under key
	Upload(ctx context.Context, key string, reader io.Reader, params UploadParams) error

	// Download returns the content stored under key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content stored under key
	Delete(ctx context.Context, key string) error

	// GetDownloadURL returns a URL the client can fetch the blob from
	GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for a blob
	GetObjectMeta(ctx context.Context, key string) (*ObjectMeta, error)
}

// UploadParams contains optional parameters for an upload
type UploadParams struct {
	ContentType string
	Filename    string
}

// ObjectMeta contains metadata about a stored blob
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}
