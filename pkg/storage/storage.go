package stores

import (
	"context"
	"io"

	"JevanRaksha/pkg/errors"
)

// Store is the object storage used for chat media attachments.
type Store interface {
	// Write uploads an object. contentType may be empty.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read streams an object and its size.
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the externally reachable URL for an object.
	PublicURL(key string) string
}

// Config selects and configures a storage backend.
type Config struct {
	Backend string `env:"STORAGE_BACKEND"` // "rest" or "minio"
	Bucket  string `env:"MEDIA_BUCKET"`

	// rest backend
	BaseURL string `env:"STORAGE_BASE_URL"`
	APIKey  string `env:"STORE_API_KEY"`

	// minio backend
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
	PublicURL string `env:"MINIO_PUBLIC_BASE"`
}

// NewStore creates the configured storage backend.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioStore(cfg), nil
	case "rest", "":
		return NewRestStore(cfg), nil
	default:
		return nil, errors.WithCode(errors.CodeStorage, "unsupported storage backend: "+cfg.Backend)
	}
}
