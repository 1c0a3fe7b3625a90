package news

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-service/internal/core"
)

// ErrEmptyCorpus indicates that neither the events source nor the scraper
// produced any usable text for the keyword. It is a normal retrieval signal,
// not a fatal error; the orchestrator decides how to proceed.
var ErrEmptyCorpus = errors.New("no content retrieved for keyword")

// Aggregator merges the events source and the scraper into a single corpus.
type Aggregator struct {
	source      core.EventsSource
	scraper     core.ContentScraper
	log         *logger.Logger
	minSnippets int
	maxURLs     int
}

// NewAggregator creates an aggregator over the given collaborators.
// minSnippets is the threshold below which scraping kicks in; maxURLs bounds
// how many article pages are fetched.
func NewAggregator(
	source core.EventsSource,
	scraper core.ContentScraper,
	minSnippets, maxURLs int,
	log *logger.Logger,
) *Aggregator {
	return &Aggregator{
		source:      source,
		scraper:     scraper,
		log:         log,
		minSnippets: minSnippets,
		maxURLs:     maxURLs,
	}
}

// Collect queries the events source for the keyword and, when the usable
// snippet count stays below the configured minimum, scrapes the discovered
// article URLs for their full text. Snippets keep their source attribution.
func (a *Aggregator) Collect(ctx context.Context, keyword string) (core.Corpus, error) {
	articles, err := a.source.Search(ctx, keyword)
	if err != nil {
		a.log.Warn("Events source query failed for %q: %v", keyword, err)

		articles = nil
	}

	corpus := a.snippetsFromArticles(articles)

	if len(corpus) < a.minSnippets {
		corpus = append(corpus, a.scrapeArticles(ctx, articles)...)
	}

	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCorpus, keyword)
	}

	return corpus, nil
}

// snippetsFromArticles converts titles that carry enough text on their own
// into snippets. Articles without a title contribute nothing here; their URL
// may still be scraped.
func (a *Aggregator) snippetsFromArticles(articles []core.Article) core.Corpus {
	corpus := make(core.Corpus, 0, len(articles))

	for _, article := range articles {
		if article.Title == "" {
			continue
		}

		corpus = append(corpus, core.Snippet{
			Source: article.Source,
			Text:   article.Title,
		})
	}

	return corpus
}

// scrapeArticles fetches full-page text for up to maxURLs article URLs.
// Individual scrape failures are logged and skipped so one dead page does not
// sink the whole retrieval.
func (a *Aggregator) scrapeArticles(ctx context.Context, articles []core.Article) core.Corpus {
	var corpus core.Corpus

	scraped := 0

	for _, article := range articles {
		if scraped >= a.maxURLs {
			break
		}

		if article.URL == "" {
			continue
		}

		text, err := a.scraper.Fetch(ctx, article.URL)
		if err != nil {
			a.log.Warn("Failed to scrape %s: %v", article.URL, err)

			continue
		}

		corpus = append(corpus, core.Snippet{
			Source: article.Source,
			Text:   text,
		})
		scraped++
	}

	return corpus
}
