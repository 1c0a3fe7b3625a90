// Package news implements the news retrieval stage: a GDELT DOC API client,
// a crawler client for full-page text, and the aggregator that merges both
// into a single corpus for a keyword.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/book-expert/podcast-service/internal/core"
)

// GDELT DOC API query defaults.
const (
	gdeltMode     = "artlist"
	gdeltFormat   = "json"
	gdeltTimespan = "7d"
	gdeltSort     = "DateDesc"

	// The API rejects bare multi-word queries; each term is quoted.
	defaultMaxRecords = 10
	defaultAPIVersion = 2
)

// Static errors.
var (
	ErrKeywordTooShort = errors.New("keyword too short for a GDELT query")
	ErrGDELTStatus     = errors.New("GDELT API returned non-OK status")
)

// gdeltArticle mirrors one entry of the DOC API artlist response.
type gdeltArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	SourceCountry string `json:"sourcecountry"`
	SeenDate      string `json:"seendate"`
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

// GDELTClient queries the GDELT DOC API for recent articles about a keyword.
type GDELTClient struct {
	httpClient *http.Client
	endpoint   string
	maxRecords int
}

// NewGDELTClient creates a client for the GDELT DOC API. The baseURL is the
// API root (e.g. "https://api.gdeltproject.org"); the version selects the doc
// endpoint under it, so "/api/v2/doc/doc" for version 2.
func NewGDELTClient(baseURL string, version, maxRecords int, timeout time.Duration) *GDELTClient {
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	if version <= 0 {
		version = defaultAPIVersion
	}

	return &GDELTClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   fmt.Sprintf("%s/api/v%d/doc/doc", baseURL, version),
		maxRecords: maxRecords,
	}
}

// Search returns recent articles matching the keyword, newest first.
// An empty result is not an error; the aggregator decides how to proceed.
func (c *GDELTClient) Search(ctx context.Context, keyword string) ([]core.Article, error) {
	query, err := buildQuery(keyword)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", gdeltMode)
	params.Set("format", gdeltFormat)
	params.Set("timespan", gdeltTimespan)
	params.Set("sort", gdeltSort)
	params.Set("maxrecords", strconv.Itoa(c.maxRecords))

	requestURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GDELT request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query GDELT at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("%w: %s: %s", ErrGDELTStatus, resp.Status, string(body))
	}

	var decoded gdeltResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode GDELT response: %w", err)
	}

	articles := make([]core.Article, 0, len(decoded.Articles))
	for _, article := range decoded.Articles {
		articles = append(articles, core.Article{
			Title:     article.Title,
			URL:       article.URL,
			Source:    article.SourceCountry,
			Published: article.SeenDate,
		})
	}

	return articles, nil
}

// buildQuery quotes the keyword per the DOC API query rules. Terms shorter
// than three characters return no usable results and are rejected up front.
func buildQuery(keyword string) (string, error) {
	const minTermLength = 3

	if len(keyword) < minTermLength {
		return "", fmt.Errorf("%w: %q", ErrKeywordTooShort, keyword)
	}

	return `"` + keyword + `"`, nil
}
