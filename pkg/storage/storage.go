// Package storage provides keyed blob operations behind a provider-neutral
// System interface, with Azure Blob Storage and local filesystem backends.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"verdict/pkg/lifecycle"
)

// MaxListCap bounds the page size any caller can request from List.
const MaxListCap = 5000

// Provider names accepted by Config.Provider.
const (
	ProviderAzure = "azure"
	ProviderLocal = "local"
)

// System manages blob operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that initializes the backing store.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to a blob at the given key with the specified content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns the blob stream and its content metadata. The caller
	// must close the body. Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (*DownloadResult, error)
	// Delete removes the blob at the given key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
	// Find returns metadata for the blob at the given key. Returns ErrNotFound
	// if the blob does not exist.
	Find(ctx context.Context, key string) (*Object, error)
	// List returns one page of blobs under the given prefix, resuming after
	// marker. A NextMarker in the result means more pages remain.
	List(ctx context.Context, prefix, marker string, maxResults int32) (*ListResult, error)
	// SignedURL returns a URL granting time-limited read access to the blob.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Object describes a stored blob.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ListResult is one page of a prefix listing.
type ListResult struct {
	Objects    []Object `json:"objects"`
	NextMarker string   `json:"next_marker,omitempty"`
}

// DownloadResult carries a blob stream with its content metadata.
type DownloadResult struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// New creates a storage system for the configured provider. Backends validate
// credentials at construction but do not touch the store until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderLocal:
		return newLocal(cfg, logger)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// ParseMaxResults parses a max_results query value, substituting fallback
// when empty and clamping to MaxListCap.
func ParseMaxResults(value string, fallback int32) (int32, error) {
	if value == "" {
		return min(fallback, MaxListCap), nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxResults, value)
	}

	return min(int32(n), MaxListCap), nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
