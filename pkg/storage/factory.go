package storage

import (
	"context"
	"fmt"

	"github.com/placement-sarthi/placement-api/pkg/config"
)

// OpenObjectStore selects the upload backend from configuration.
func OpenObjectStore(ctx context.Context, cfg config.UploadsConfig, publicBase string) (ObjectStore, error) {
	switch cfg.Driver {
	case "", config.UploadDriverFilesystem:
		local, err := NewLocalStorage(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		return local.WithPublicBase(publicBase), nil
	case config.UploadDriverS3:
		return NewS3Store(ctx, S3Options{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			Endpoint:   cfg.S3.Endpoint,
			PathStyle:  cfg.S3.PathStyle,
			PresignTTL: cfg.PresignTTL,
		})
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}
