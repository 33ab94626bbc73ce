package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/totegamma/works-uploader"
)

// Storage persists uploaded objects and returns their public URL.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Type      string // local, s3
	BasePath  string
	BaseURL   string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocal(cfg.BasePath, cfg.BaseURL)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func publicURL(base, key string) (string, error) {
	return works.JoinURL(base, "/"+strings.TrimPrefix(key, "/"))
}
