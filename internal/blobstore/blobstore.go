package blobstore

import (
	"context"
	"fmt"

	"github.com/sventech/prodline/internal/config"
)

// Store is where identity artifacts live. Put returns an opaque ref that is
// stored on the unit record; Delete is idempotent (deleting a ref that is
// already gone succeeds), which makes saga compensation safe to run exactly
// once without a pre-check.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// New selects a driver from configuration: "s3" or "local" (default)
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
