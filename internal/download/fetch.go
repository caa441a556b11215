package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const fetchUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher downloads a URL into a directory. Only used for
// thumbnail retrieval; media bytes always come through the extraction
// engine.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 2 * time.Minute}}
}

func (fetcher *HTTPFetcher) Fetch(ctx context.Context, rawURL string, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := fetcher.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch of %s returned status %d", rawURL, resp.StatusCode)
	}

	dest := filepath.Join(destDir, fetchFilename(rawURL))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return "", err
	}

	return dest, nil
}

// fetchFilename derives a sane local filename from the URL path,
// falling back to a fixed name when the path gives nothing usable.
func fetchFilename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "thumbnail.jpg"
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "thumbnail.jpg"
	}

	// Strip any query-ish leftovers and keep the name filesystem-safe.
	name = strings.Map(func(r rune) rune {
		switch r {
		case '?', '&', '=', '#', '%':
			return '_'
		}
		return r
	}, name)

	if filepath.Ext(name) == "" {
		name += ".jpg"
	}

	return name
}
