package blobstore

import (
	"context"
	"fmt"

	"github.com/Tomlord1122/todo-service/internal/config"
)

// NewStoreFromConfig builds the Store selected by cfg.Type.
func NewStoreFromConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "filesystem", "":
		return NewFileSystemStore(cfg.FSRoot)
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
