package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore copies artifacts into a directory served by some external
// static file server (or the gateway itself during development).
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir string, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}

	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

func (store *LocalStore) Upload(_ context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)
	dest := filepath.Join(store.dir, name)

	source, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer source.Close()

	target, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(target, source); err != nil {
		target.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy %s to store: %w", localPath, err)
	}

	if err := target.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", dest, err)
	}

	return store.baseURL + "/" + url.PathEscape(name), nil
}
