package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// ErrNotFound is returned when a fetcher has nothing at the requested URL.
var ErrNotFound = errors.New("resource not found")

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FSFetcher serves relative URLs out of a file system (os.DirFS in production).
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(path.Clean("/"+stripQuery(rawURL)), "/")
	raw, err := fs.ReadFile(f.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return raw, nil
}

// HTTPFetcher downloads absolute http(s) URLs.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return raw, nil
}

// MuxFetcher sends http(s) URLs to Remote and everything else to Local.
type MuxFetcher struct {
	Local  Fetcher
	Remote Fetcher
}

func (m MuxFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if u, err := url.Parse(rawURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if m.Remote == nil {
			return nil, fmt.Errorf("fetch %s: no remote fetcher configured", rawURL)
		}
		return m.Remote.Fetch(ctx, rawURL)
	}
	if m.Local == nil {
		return nil, fmt.Errorf("fetch %s: no local fetcher configured", rawURL)
	}
	return m.Local.Fetch(ctx, rawURL)
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
