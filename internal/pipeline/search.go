package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rosterfill/rosterfill/internal/model"
)

// searchSleepFunc is overridable for fast tests.
var searchSleepFunc = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SearchClient queries the external web-search service for candidate
// official websites.
type SearchClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	retries    int
	backoff    time.Duration
	maxResults int
	denylist   []string
}

// NewSearchClient creates a search client from config.
func NewSearchClient(cfg model.SearchConfig, timeout time.Duration) *SearchClient {
	return &SearchClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		maxResults: cfg.MaxResults,
		denylist:   cfg.Denylist,
	}
}

type searchResponse struct {
	Organic []struct {
		Link string `json:"link"`
	} `json:"organic"`
}

// Search returns up to maxResults candidate URLs for the school, in the
// service's ranking order. An empty result is a normal outcome; all
// failures are retried with a fixed backoff and reported, never raised.
func (c *SearchClient) Search(ctx context.Context, schoolName, region string) []string {
	name := model.NormalizeCell(schoolName)
	query := name + " " + model.NormalizeCell(region) + " official website"

	for attempt := 0; attempt < c.retries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		websites, err := c.searchOnce(ctx, query)
		if err != nil {
			fmt.Printf("Search attempt %d failed for %s: %v\n", attempt+1, name, err)
		} else if len(websites) > 0 {
			fmt.Printf("Top %d sites for %s: %v\n", len(websites), name, websites)
			return websites
		}
		if attempt < c.retries-1 {
			searchSleepFunc(ctx, c.backoff)
		}
	}

	fmt.Printf("No websites found for %s\n", name)
	return nil
}

func (c *SearchClient) searchOnce(ctx context.Context, query string) ([]string, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var websites []string
	for _, item := range result.Organic {
		if item.Link == "" || c.denied(item.Link) {
			continue
		}
		if !strings.HasPrefix(item.Link, "http://") && !strings.HasPrefix(item.Link, "https://") {
			continue
		}
		websites = append(websites, item.Link)
		if len(websites) == c.maxResults {
			break
		}
	}

	return websites, nil
}

func (c *SearchClient) denied(link string) bool {
	for _, bad := range c.denylist {
		if strings.Contains(link, bad) {
			return true
		}
	}
	return false
}
