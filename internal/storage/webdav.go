package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/emersion/go-webdav"
)

// WebdavStore delivers artifacts to a WebDAV share. The public URL for
// an uploaded artifact is the share URL plus the artifact path, which
// assumes the share is readable at the same address it is written to.
type WebdavStore struct {
	client   *webdav.Client
	baseURL  string
	basePath string
}

func NewWebdavStore(config Config) (*WebdavStore, error) {
	base, username, password, err := normalizeWebdavURL(config.URL)
	if err != nil {
		return nil, err
	}

	if config.Username != "" {
		username = config.Username
		password = config.Password
	}

	var httpClient webdav.HTTPClient
	if username != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(nil, username, password)
	}

	client, err := webdav.NewClient(httpClient, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	basePath := strings.TrimSuffix(config.BasePath, "/")
	if basePath == "" {
		basePath = "/"
	}

	return &WebdavStore{client: client, baseURL: base, basePath: basePath}, nil
}

func (store *WebdavStore) Upload(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)
	remotePath := path.Join(store.basePath, name)

	source, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer source.Close()

	// Mkdir fails harmlessly when the collection already exists.
	if err := store.client.Mkdir(ctx, store.basePath); err != nil {
		log.Verbosef("Mkdir %s on webdav share returned %v (collection likely exists)\n", store.basePath, err)
	}

	writer, err := store.client.Create(ctx, remotePath)
	if err != nil {
		return "", fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}

	if _, err := io.Copy(writer, source); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write %s to webdav share: %w", remotePath, err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize remote file %s: %w", remotePath, err)
	}

	return store.baseURL + path.Join("/", store.basePath, url.PathEscape(name)), nil
}
