package newspaper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

const (
	zeitBaseURL  = "https://www.zeit.de"
	zeitLoginURL = "https://meine.zeit.de/anmelden"
)

// Zeit publishes weekly editions rather than daily archives. A date range is
// mapped onto ISO weeks and each edition index is fetched once per run.
type Zeit struct {
	fetcher  ports.Fetcher
	logger   *slog.Logger
	baseURL  string
	loginURL string
	indexed  map[string]bool
}

var _ Adapter = (*Zeit)(nil)

// NewZeit wires the shared HTTP fetcher.
func NewZeit(fetcher ports.Fetcher, logger *slog.Logger) *Zeit {
	return &Zeit{
		fetcher:  fetcher,
		logger:   logger,
		baseURL:  zeitBaseURL,
		loginURL: zeitLoginURL,
		indexed:  map[string]bool{},
	}
}

// ID identifies the adapter inside the registry.
func (z *Zeit) ID() string {
	return "zeit"
}

// Index resolves the day to its ISO week and parses that edition's index
// page. Days falling into an edition already indexed this run yield nothing.
func (z *Zeit) Index(ctx context.Context, day time.Time) ([]domain.IndexedArticle, error) {
	year, week := day.ISOWeek()
	edition := fmt.Sprintf("%d/%02d", year, week)
	if z.indexed[edition] {
		return nil, nil
	}
	z.indexed[edition] = true

	indexURL := fmt.Sprintf("%s/%d/%02d/index", z.baseURL, year, week)
	body, err := z.fetcher.Get(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("edition %s: %w", edition, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse edition index: %w", err)
	}

	seen := map[string]bool{}
	var articles []domain.IndexedArticle
	doc.Find("article a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || !strings.HasPrefix(href, z.baseURL+"/") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		articles = append(articles, domain.IndexedArticle{
			URL:         href,
			NewspaperID: z.ID(),
			PublishedAt: day,
			IndexDay:    day,
		})
	})

	z.debug("indexed edition", "edition", edition, "articles", len(articles))
	return articles, nil
}

// FetchPublic retrieves an article over plain HTTP, preferring the
// komplettansicht view when the article is paginated.
func (z *Zeit) FetchPublic(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := z.fetcher.Get(ctx, url)
	if err != nil {
		return nil, false, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse article %s: %w", url, err)
	}

	// Paginated articles link to a single-page view; fetch that instead.
	fullView := url + "/komplettansicht"
	if doc.Find(fmt.Sprintf(`a[href=%q]`, fullView)).Length() > 0 {
		if full, err := z.fetcher.Get(ctx, fullView); err == nil {
			body = full
			doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
			if err != nil {
				return nil, false, fmt.Errorf("parse article %s: %w", fullView, err)
			}
		}
	}

	return body, z.isPaywalled(doc), nil
}

// The paywall aside only renders for anonymous sessions.
func (z *Zeit) isPaywalled(doc *goquery.Document) bool {
	return doc.Find("aside#paywall").Length() > 0
}

// Z+ articles carry the zplus badge whether or not the session is logged in.
func (z *Zeit) hasPremiumBadge(doc *goquery.Document) bool {
	return doc.Find(`[class*="zplus-badge"]`).Length() > 0 ||
		doc.Find(`[data-zplus]`).Length() > 0
}

// Login signs in on meine.zeit.de and waits for the account dashboard.
func (z *Zeit) Login(ctx context.Context, b ports.Browser, creds domain.Credentials) error {
	if err := b.Navigate(ctx, z.loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := b.Fill(ctx, `input[type="email"]`, creds.Username); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := b.Fill(ctx, `input[type="password"]`, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := b.Click(ctx, `input[type="submit"]`); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	if err := b.WaitVisible(ctx, "span.dashboard__title"); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, creds.Username)
	}

	z.debug("logged in", "user", creds.Username)
	return nil
}

// FetchPremium loads the article through the authenticated session,
// following the komplettansicht link for paginated articles.
func (z *Zeit) FetchPremium(ctx context.Context, b ports.Browser, url string) ([]byte, error) {
	if err := b.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	html, err := b.PageHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("page source %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", url, err)
	}

	fullView := url + "/komplettansicht"
	if doc.Find(fmt.Sprintf(`a[href=%q]`, fullView)).Length() > 0 {
		if err := b.Navigate(ctx, fullView); err != nil {
			return nil, fmt.Errorf("navigate %s: %w", fullView, err)
		}
		if html, err = b.PageHTML(ctx); err != nil {
			return nil, fmt.Errorf("page source %s: %w", fullView, err)
		}
		if doc, err = goquery.NewDocumentFromReader(strings.NewReader(html)); err != nil {
			return nil, fmt.Errorf("parse article %s: %w", fullView, err)
		}
	}

	if z.isPaywalled(doc) {
		return nil, fmt.Errorf("%s after login: %w", url, domain.ErrPaywalled)
	}
	if !z.hasPremiumBadge(doc) {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrPaywallMismatch)
	}

	return []byte(html), nil
}

func (z *Zeit) debug(msg string, args ...any) {
	if z.logger != nil {
		z.logger.Debug(msg, args...)
	}
}
