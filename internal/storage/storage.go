// Package storage provides the destinations finished artifacts are
// delivered to. A Store accepts a local file and returns the public URL
// it can be fetched from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("Storage")

// Store is implemented by every backend.
type Store interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type Config struct {
	// Backend is "local" or "webdav".
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"local"`

	// Local backend settings.
	Dir           string `yaml:"dir" env:"STORAGE_DIR" env-default:"/tmp/snagd/store"`
	PublicBaseURL string `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL" env-default:"http://localhost:8080/files"`

	// Webdav backend settings. URL accepts webdav:// and webdav+http://
	// schemes as aliases for https:// and http://.
	URL      string `yaml:"url" env:"STORAGE_URL"`
	Username string `yaml:"username" env:"STORAGE_USERNAME"`
	Password string `yaml:"password" env:"STORAGE_PASSWORD"`
	BasePath string `yaml:"base_path" env:"STORAGE_BASE_PATH" env-default:"/snagd"`
}

// New constructs the store named by the config.
func New(config Config) (Store, error) {
	switch config.Backend {
	case "", "local":
		return NewLocalStore(config.Dir, config.PublicBaseURL)
	case "webdav":
		return NewWebdavStore(config)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Backend)
	}
}

var errNoURL = errors.New("webdav storage requires a url")

// normalizeWebdavURL rewrites webdav scheme aliases to their HTTP
// equivalents and strips embedded credentials.
func normalizeWebdavURL(rawURL string) (base string, username string, password string, err error) {
	if rawURL == "" {
		return "", "", "", errNoURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid storage url: %w", err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "webdav":
		scheme = "https"
	case "webdav+http":
		scheme = "http"
	}

	if parsed.User != nil {
		username = parsed.User.Username()
		password, _ = parsed.User.Password()
	}

	base = fmt.Sprintf("%s://%s%s", scheme, parsed.Host, strings.TrimSuffix(parsed.Path, "/"))
	return base, username, password, nil
}
