// Package blobstore provides file storage for appointment attachments. It
// defines the Store interface, an in-memory implementation suitable for tests
// and single-node deployments, and an HMAC signer producing the short-lived
// pre-signed URLs through which clients upload and download blobs directly.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrBlobNotFound          = errors.New("blob not found")
	ErrBlobTooLarge          = errors.New("blob exceeds maximum allowed size")
	ErrContentTypeNotAllowed = errors.New("content type is not allowed")
	ErrInvalidPath           = errors.New("blob path is invalid")
)

// ---------------------------------------------------------------------------
// Validation constants
// ---------------------------------------------------------------------------

// DefaultMaxBlobSize is the fallback size cap when none is configured (10 MB).
const DefaultMaxBlobSize = 10 * 1024 * 1024

// AllowedContentTypes lists the MIME types accepted for attachments.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"text/plain":      true,
}

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// Blob describes a stored attachment.
type Blob struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store defines the contract for attachment storage backends.
type Store interface {
	Put(ctx context.Context, path, contentType string, content io.Reader) (*Blob, error)
	Get(ctx context.Context, path string) (io.ReadCloser, *Blob, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]*Blob, error)
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	meta    Blob
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	maxSize int64
}

// NewMemoryStore returns a ready-to-use MemoryStore. A non-positive maxSize
// falls back to DefaultMaxBlobSize.
func NewMemoryStore(maxSize int64) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxBlobSize
	}
	return &MemoryStore{
		blobs:   make(map[string]*storedBlob),
		maxSize: maxSize,
	}
}

// Put validates the path and content type, reads the content, computes a
// SHA-256 checksum, and stores the blob. An existing blob at the same path is
// replaced.
func (s *MemoryStore) Put(_ context.Context, path, contentType string, content io.Reader) (*Blob, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if !AllowedContentTypes[contentType] {
		return nil, ErrContentTypeNotAllowed
	}

	// Read content into memory so we can measure size and compute the checksum.
	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrBlobTooLarge
	}

	h := sha256.Sum256(data)

	meta := Blob{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    fmt.Sprintf("%x", h),
		UploadedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[path] = &storedBlob{meta: meta, content: data}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

// Get returns an io.ReadCloser over the blob content and its metadata.
func (s *MemoryStore) Get(_ context.Context, path string) (io.ReadCloser, *Blob, error) {
	s.mu.RLock()
	blob, ok := s.blobs[path]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.meta // copy
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Delete removes a blob by path.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[path]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, path)
	return nil
}

// List returns the blobs whose path starts with the given prefix, ordered by
// path.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Blob
	for path, b := range s.blobs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		m := b.meta // copy
		matched = append(matched, &m)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Path < matched[j].Path })
	return matched, nil
}

// ValidatePath rejects empty paths and path traversal. Blob paths are slash
// separated keys, not filesystem paths.
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	if strings.HasPrefix(path, "/") || strings.Contains(path, "..") || strings.Contains(path, "//") {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			return ErrInvalidPath
		}
	}
	return nil
}
