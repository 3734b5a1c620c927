// Package objectstore keeps proof and bill images outside the database.
// Records only store the returned URL.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"solar-inventory-backend/internal/config"

	"github.com/sirupsen/logrus"
)

type Store interface {
	// Put writes data under key and returns the public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes key; a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// New picks the backend from STORAGE_PROVIDER.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Store, error) {
	switch cfg.StorageProvider {
	case "gcs":
		s, err := NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"bucket": cfg.GCSBucket}).Info("object store: gcs")
		return s, nil
	case "", "local":
		s, err := NewLocal(cfg.UploadPath, strings.TrimRight(cfg.PublicBaseURL, "/")+"/uploads")
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"path": cfg.UploadPath}).Info("object store: local")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.StorageProvider)
	}
}

// LocalStore writes under Root; main serves Root at /uploads.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Root: root, BaseURL: baseURL}, nil
}

func (s *LocalStore) path(key string) (string, string) {
	clean := filepath.Clean("/" + key)
	return clean, filepath.Join(s.Root, clean)
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean, path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return s.BaseURL + filepath.ToSlash(clean), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	_, path := s.path(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
