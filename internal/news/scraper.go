package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Static errors.
var (
	ErrScrapeStatus = errors.New("scraper returned non-OK status")
	ErrEmptyPage    = errors.New("scraper returned an empty page")
)

// ScraperClient fetches the extracted text of a web page through a
// reader-style crawler service that takes the target URL as its path
// (GET {base}/{url}) and responds with plain text.
type ScraperClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewScraperClient creates a client for the crawler service.
func NewScraperClient(baseURL string, timeout time.Duration) *ScraperClient {
	return &ScraperClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch returns the extracted text for the given page URL.
func (c *ScraperClient) Fetch(ctx context.Context, pageURL string) (string, error) {
	requestURL := c.baseURL + "/" + pageURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create scrape request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to scrape %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s for %s", ErrScrapeStatus, resp.Status, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read scraped content: %w", err)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyPage, pageURL)
	}

	return text, nil
}
