package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rosterfill/rosterfill/internal/cache"
)

// Fetcher fetches HTML content from URLs, consulting the page cache
// before going to the network.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	pageCache  cache.Cache
	cacheTTL   time.Duration
}

// NewFetcher creates a new Fetcher. pageCache may be nil to disable
// caching.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, pageCache cache.Cache, cacheTTL time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		pageCache: pageCache,
		cacheTTL:  cacheTTL,
	}
}

// Fetch retrieves the HTML body of the given URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	key := cache.Key(rawURL)
	if f.pageCache != nil {
		if body, found := f.pageCache.Get(key); found {
			return string(body), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if f.pageCache != nil {
		if err := f.pageCache.Set(key, body, f.cacheTTL); err != nil {
			fmt.Printf("Warning: page cache write failed: %v\n", err)
		}
	}

	return string(body), nil
}
