package config

// Header constants.
const (
	HEADER_KEY_AUTHORIZATION = "Authorization"
	HEADER_KEY_X_REQUEST_ID  = "X-Request-Id"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST         = "REDIS_HOST"
	ENV_KEY_REDIS_PORT         = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD     = "REDIS_PASSWORD"
	ENV_KEY_WORKER_CONCURRENCY = "WORKER_CONCURRENCY"
	ENV_KEY_RECONCILE_CRON     = "RECONCILE_CRON"

	ENV_KEY_JWT_SECRET = "JWT_SECRET"
	ENV_KEY_JWT_TTL    = "JWT_TTL"

	ENV_KEY_GEOCODING_API_KEY  = "GEOCODING_API_KEY"
	ENV_KEY_GEOCODING_BASE_URL = "GEOCODING_BASE_URL"
	ENV_KEY_GEOCODING_TIMEOUT  = "GEOCODING_TIMEOUT"
	ENV_KEY_GEOCODING_RPS      = "GEOCODING_RPS"

	ENV_KEY_ASSET_BACKEND     = "ASSET_BACKEND"
	ENV_KEY_ASSET_SWEEP_GRACE = "ASSET_SWEEP_GRACE"
	ENV_KEY_UPLOAD_DIR        = "UPLOAD_DIR"
	ENV_KEY_PUBLIC_BASE_URL   = "PUBLIC_BASE_URL"

	ENV_KEY_MINIO_BUCKET     = "MINIO_BUCKET"
	ENV_KEY_MINIO_ENDPOINT   = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY = "MINIO_SECRET_KEY"
	ENV_KEY_MINIO_USE_SSL    = "MINIO_USE_SSL"

	ENV_KEY_S3_BUCKET = "S3_BUCKET"
	ENV_KEY_S3_REGION = "S3_REGION"

	ENV_KEY_OTEL_SERVICE_NAME = "OTEL_SERVICE_NAME"
	ENV_KEY_OTEL_ENDPOINT     = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Asset limits and layout.
const (
	MAX_IMAGE_BYTES = 500_000
	IMAGES_ROOT     = "images"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
)
