package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Local writes objects below a directory served elsewhere at baseURL.
type Local struct {
	basePath string
	baseURL  string
}

func NewLocal(basePath, baseURL string) (*Local, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}
	return &Local{basePath: basePath, baseURL: baseURL}, nil
}

func (s *Local) BasePath() string {
	return s.basePath
}

func (s *Local) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create directory")
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write file")
	}

	return publicURL(s.baseURL, key)
}

func (s *Local) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete file")
	}
	return nil
}

func (s *Local) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}
