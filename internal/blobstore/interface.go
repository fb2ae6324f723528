package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a location holds no blob.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned when writing to a location that is already taken.
	ErrExists = errors.New("blob location already exists")
)

// WriteResult describes one persisted blob payload.
type WriteResult struct {
	Location  string
	SizeBytes int64
	Checksum  string
}

// BlobInfo describes one stored blob.
type BlobInfo struct {
	Location  string
	SizeBytes int64
	ModTime   time.Time
}

// BlobStore is the byte-storage surface used by the content and rendition
// layers. It has no transactional semantics: a successful Write is durable
// and can only be undone by Delete.
type BlobStore interface {
	// Allocate returns a fresh location without creating anything.
	Allocate() string
	Write(ctx context.Context, location string, r io.Reader) (WriteResult, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Delete removes a blob. Missing locations are ignored.
	Delete(ctx context.Context, location string) error
	Exists(ctx context.Context, location string) (bool, error)
	// List returns every committed blob, excluding in-progress temp files.
	List(ctx context.Context) ([]BlobInfo, error)
	// IsEmpty reports whether the store holds no blobs or leftover temp files.
	IsEmpty() (bool, error)
}
