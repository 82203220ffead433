package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/parcel/internal"
)

const labelContentType = "application/pdf"

// Storage defines the interface for label archive operations.
// Implementations can use the local filesystem or any S3-compatible bucket.
type Storage interface {
	// Put stores a file and returns its URL/path for retrieval.
	// The key should be a unique identifier (e.g., "labels/2026/10/14/myparcel-label-1.pdf").
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Get retrieves a file by its key.
	// Returns an io.ReadCloser that must be closed by the caller.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file by its key.
	// Returns nil if the file doesn't exist (idempotent).
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for accessing a stored file.
	URL(key string) string

	// Exists checks if a file exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewStorage creates a Storage implementation based on configuration.
// Returns LocalStorage for "local" provider, S3Storage for "s3" provider.
func NewStorage(cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3":
		return NewS3Storage(context.Background(), S3Config{
			Endpoint:    cfg.S3Endpoint,
			Region:      cfg.S3Region,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
			BucketName:  cfg.S3BucketName,
			PublicURL:   cfg.S3PublicURL,
		})
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}

// LabelKey returns the archive key for a label PDF covering the given
// shipment ids, partitioned by UTC day.
func LabelKey(ids []int, now time.Time) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	now = now.UTC()
	return path.Join(
		"labels",
		now.Format("2006"), now.Format("01"), now.Format("02"),
		fmt.Sprintf("myparcel-label-%s.pdf", strings.Join(parts, "-")),
	)
}

// ArchiveLabel stores pdf under LabelKey and returns its URL.
func ArchiveLabel(ctx context.Context, s Storage, ids []int, pdf []byte, now time.Time) (string, error) {
	if len(ids) == 0 {
		return "", ErrNoShipmentIDs
	}
	return s.Put(ctx, LabelKey(ids, now), bytes.NewReader(pdf), labelContentType)
}
