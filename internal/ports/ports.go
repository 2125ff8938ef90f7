package ports

import (
	"context"
	"time"

	"newspaperscraper/internal/domain"
)

// ArticleStore persists the three article tables keyed by URL.
type ArticleStore interface {
	// UpsertIndexed inserts discovered articles, ignoring URLs already
	// present. Returns the number of newly inserted rows.
	UpsertIndexed(ctx context.Context, articles []domain.IndexedArticle) (int, error)

	// IndexedDays returns the set of archive days (YYYY-MM-DD) already
	// indexed for a newspaper.
	IndexedDays(ctx context.Context, newspaperID string) (map[string]bool, error)

	// UnscrapedPublic lists unscraped articles that are public or of
	// unknown premium status.
	UnscrapedPublic(ctx context.Context, newspaperID string) ([]domain.IndexedArticle, error)

	// UnscrapedPremium lists unscraped articles known to be paywalled.
	UnscrapedPremium(ctx context.Context, newspaperID string) ([]domain.IndexedArticle, error)

	MarkPremium(ctx context.Context, url string, premium bool) error
	RecordScrapeError(ctx context.Context, url, message string) error

	// SaveScraped writes the scraped row and stamps the article as scraped
	// in one transaction.
	SaveScraped(ctx context.Context, article domain.ScrapedArticle) error

	// UnprocessedScraped lists scraped articles without a processed row.
	UnprocessedScraped(ctx context.Context, newspaperID string) ([]domain.ScrapedArticle, error)

	SaveProcessed(ctx context.Context, article domain.ProcessedArticle) error

	Close() error
}

// Fetcher retrieves a page over plain HTTP.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Browser is an authenticated headless-browser session. Adapters compose
// these primitives into site-specific login flows.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	PageHTML(ctx context.Context) (string, error)
	Close() error
}

// Extractor parses raw article HTML into structured content and metadata.
type Extractor interface {
	Extract(pageURL string, html []byte) (domain.ScrapedArticle, error)
}

// Annotator derives linguistic features from cleaned article text.
type Annotator interface {
	Annotate(ctx context.Context, url, text string) (domain.ProcessedArticle, error)
}

// Notifier publishes pipeline run summaries to an outbound channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when recurring pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
