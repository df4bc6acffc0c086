// Package storage keeps uploaded files and issues time-limited download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/config"
)

// ErrInvalidKey is returned for keys that could escape the store's namespace.
var ErrInvalidKey = errors.New("invalid storage key")

// ErrExists is returned by Put when an object is already stored under the key.
var ErrExists = errors.New("storage key already exists")

// BlobStore stores objects by key and signs download URLs for them.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the blob store selected by cfg.Backend. baseURL is the public URL of
// this server, used by the local backend's download route.
func New(ctx context.Context, cfg *config.StorageConfig, baseURL string, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStore(cfg.LocalDir, baseURL, cfg.SigningKey)
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
