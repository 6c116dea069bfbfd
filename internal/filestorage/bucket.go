package filestorage

import (
	"context"
	"fmt"

	"github.com/placeshare/placeshare/internal/config"
)

const (
	BackendLocal = "local"
	BackendMinIO = "minio"
	BackendS3    = "s3"
)

// NewBucketFromEnv builds the backend selected by ASSET_BACKEND.
func NewBucketFromEnv(ctx context.Context) (Bucket, error) {
	switch backend := config.GetEnv(config.ENV_KEY_ASSET_BACKEND, BackendLocal); backend {
	case BackendLocal:
		return NewLocalStorage(
			config.GetEnv(config.ENV_KEY_UPLOAD_DIR, "uploads"),
			config.GetEnv(config.ENV_KEY_PUBLIC_BASE_URL, ""),
		), nil
	case BackendMinIO:
		return NewMinIOStorage(
			config.GetEnv(config.ENV_KEY_MINIO_BUCKET, "placeshare"),
			config.GetEnv(config.ENV_KEY_MINIO_ENDPOINT, "localhost:9000"),
			config.GetEnv(config.ENV_KEY_MINIO_ACCESS_KEY, ""),
			config.GetEnv(config.ENV_KEY_MINIO_SECRET_KEY, ""),
			config.GetEnvBool(config.ENV_KEY_MINIO_USE_SSL, true),
		)
	case BackendS3:
		return NewS3Storage(ctx,
			config.GetEnv(config.ENV_KEY_S3_BUCKET, "placeshare"),
			config.GetEnv(config.ENV_KEY_S3_REGION, "ap-southeast-1"),
		)
	default:
		return nil, fmt.Errorf("unknown asset backend %q", backend)
	}
}
