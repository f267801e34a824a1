// Package storage provides the filesystem-backed image store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"roomscene_backend/internal/feature/scene/usecase"
)

var (
	// ErrInvalidKey is returned for keys that are empty or escape the root directory.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNotFound is returned by Get when no object is stored under the key.
	ErrNotFound = errors.New("object not found")
)

// LocalStore writes objects under a root directory and exposes them under a
// public base URL (served by the media handler).
type LocalStore struct {
	root    string
	baseURL string
}

var _ usecase.ImageStore = (*LocalStore)(nil)

// Config holds configuration for LocalStore.
type Config struct {
	Root          string // Directory objects are written to
	PublicBaseURL string // URL prefix returned by Put (e.g., "/media" or "https://cdn.example.com/media")
}

// LoadConfig loads storage configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		Root:          os.Getenv("STORAGE_ROOT"),
		PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
	}
	if cfg.Root == "" {
		cfg.Root = "./data/media"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "/media"
	}
	return cfg
}

// NewLocalStore creates the root directory if needed and returns a LocalStore.
func NewLocalStore(cfg Config) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", cfg.Root, err)
	}
	return &LocalStore{root: cfg.Root, baseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}, nil
}

// Put writes data under key atomically and returns its public URL.
func (s *LocalStore) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("rename %s: %w", key, err)
	}
	return s.baseURL + "/" + path.Clean(key), nil
}

// Get reads the object stored under key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// ディレクトリなど通常ファイル以外はオブジェクトとして扱わない
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// resolve maps a slash-separated key to a path inside root.
func (s *LocalStore) resolve(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || !fs.ValidPath(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
