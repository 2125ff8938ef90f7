package newspaper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

// FeedAdapter indexes publications that expose their archive as RSS or Atom
// feeds. It is configured per site:
//
//	options:
//	  premiumCategory: feed category that marks paywalled items
//	  premiumSelector: CSS selector that marks paywalled article pages
//
// Feeds have no login flow; premium operations are rejected.
type FeedAdapter struct {
	id              string
	feeds           []string
	premiumCategory string
	premiumSelector string
	parser          *gofeed.Parser
	fetcher         ports.Fetcher
	logger          *slog.Logger
}

var _ Adapter = (*FeedAdapter)(nil)

// NewFeedAdapter builds an adapter for one feed-backed publication.
func NewFeedAdapter(id string, feeds []string, options map[string]string, fetcher ports.Fetcher, logger *slog.Logger) *FeedAdapter {
	return &FeedAdapter{
		id:              id,
		feeds:           feeds,
		premiumCategory: options["premiumCategory"],
		premiumSelector: options["premiumSelector"],
		parser:          gofeed.NewParser(),
		fetcher:         fetcher,
		logger:          logger,
	}
}

// ID identifies the adapter inside the registry.
func (f *FeedAdapter) ID() string {
	return f.id
}

// Index pulls every configured feed and keeps the items published on the
// given day. Feed categories can mark items premium already at index time.
func (f *FeedAdapter) Index(ctx context.Context, day time.Time) ([]domain.IndexedArticle, error) {
	if len(f.feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured for %s", f.id)
	}

	target := day.Format("2006-01-02")
	seen := map[string]bool{}
	var articles []domain.IndexedArticle

	for _, feedURL := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
		}

		for _, item := range feed.Items {
			if item.Link == "" || seen[item.Link] {
				continue
			}

			published := item.PublishedParsed
			if published == nil {
				published = item.UpdatedParsed
			}
			if published == nil || published.Format("2006-01-02") != target {
				continue
			}
			seen[item.Link] = true

			article := domain.IndexedArticle{
				URL:         item.Link,
				NewspaperID: f.id,
				PublishedAt: *published,
				IndexDay:    day,
			}
			if f.premiumCategory != "" && hasCategory(item, f.premiumCategory) {
				premium := true
				article.Premium = &premium
			}
			articles = append(articles, article)
		}
	}

	f.debug("indexed feeds", "day", target, "articles", len(articles))
	return articles, nil
}

func hasCategory(item *gofeed.Item, category string) bool {
	for _, c := range item.Categories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return true
		}
	}
	return false
}

// FetchPublic retrieves the article page; the configured selector, when
// present on the page, marks it as paywalled.
func (f *FeedAdapter) FetchPublic(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := f.fetcher.Get(ctx, url)
	if err != nil {
		return nil, false, err
	}

	if f.premiumSelector == "" {
		return body, false, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse article %s: %w", url, err)
	}

	return body, doc.Find(f.premiumSelector).Length() > 0, nil
}

// Login is not available for feed-backed publications.
func (f *FeedAdapter) Login(ctx context.Context, b ports.Browser, creds domain.Credentials) error {
	return fmt.Errorf("feed adapter %s has no login flow", f.id)
}

// FetchPremium is not available for feed-backed publications.
func (f *FeedAdapter) FetchPremium(ctx context.Context, b ports.Browser, url string) ([]byte, error) {
	return nil, fmt.Errorf("feed adapter %s cannot fetch premium articles", f.id)
}

func (f *FeedAdapter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
