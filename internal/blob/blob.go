// Package blob stores uploaded image bytes and hands back the URL the
// browser loads them from.
package blob

import (
	"context"
	"fmt"

	"github.com/prompt-gallery/internal/config"
)

type Store interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New picks the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		return NewLocal(cfg.LocalDir, cfg.PublicURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}
