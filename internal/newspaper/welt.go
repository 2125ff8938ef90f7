package newspaper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

const weltBaseURL = "https://www.welt.de"

// Archive teasers carry timestamps like "13.03.2024 | 18:25".
var weltTimeExpr = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}\s\|\s\d{2}:\d{2}`)

// Welt indexes the schlagzeilen archive of welt.de; WELTplus articles carry
// a premium badge in the content header.
type Welt struct {
	fetcher ports.Fetcher
	logger  *slog.Logger
	baseURL string
}

var _ Adapter = (*Welt)(nil)

// NewWelt wires the shared HTTP fetcher.
func NewWelt(fetcher ports.Fetcher, logger *slog.Logger) *Welt {
	return &Welt{fetcher: fetcher, logger: logger, baseURL: weltBaseURL}
}

// ID identifies the adapter inside the registry.
func (w *Welt) ID() string {
	return "welt"
}

// Index parses the headline archive for one day. Welt builds the archive URL
// from unpadded day and month numbers.
func (w *Welt) Index(ctx context.Context, day time.Time) ([]domain.IndexedArticle, error) {
	archiveURL := fmt.Sprintf("%s/schlagzeilen/nachrichten-vom-%d-%d-%d.html",
		w.baseURL, day.Day(), int(day.Month()), day.Year())

	body, err := w.fetcher.Get(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", day.Format("2006-01-02"), err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}

	var articles []domain.IndexedArticle
	doc.Find("div.c-tabs__panel-content article.c-teaser--archive").
		Each(func(_ int, teaser *goquery.Selection) {
			href, ok := teaser.Find("h4 a").First().Attr("href")
			if !ok || href == "" {
				return
			}
			if !strings.HasPrefix(href, "http") {
				href = w.baseURL + href
			}

			articles = append(articles, domain.IndexedArticle{
				URL:         href,
				NewspaperID: w.ID(),
				PublishedAt: w.parseTeaserTime(teaser.Text(), day),
				IndexDay:    day,
			})
		})

	w.debug("indexed archive day", "day", day.Format("2006-01-02"), "articles", len(articles))
	return articles, nil
}

func (w *Welt) parseTeaserTime(text string, day time.Time) time.Time {
	match := weltTimeExpr.FindString(text)
	if match == "" {
		return day
	}

	parsed, err := time.ParseInLocation("02.01.2006 | 15:04", match, berlin())
	if err != nil {
		return day
	}
	return parsed
}

// FetchPublic retrieves an article over plain HTTP and checks for the
// WELTplus badge.
func (w *Welt) FetchPublic(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := w.fetcher.Get(ctx, url)
	if err != nil {
		return nil, false, err
	}

	premium, err := w.isPremium(body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", url, err)
	}

	return body, premium, nil
}

func (w *Welt) isPremium(html []byte) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse article: %w", err)
	}

	header := doc.Find("header.c-content-container")
	if header.Length() == 0 {
		return false, fmt.Errorf("content header missing, cannot determine paywall status")
	}

	return header.Find("a.o-dreifaltigkeit__premium-badge").Length() > 0, nil
}

// Login signs in through the site header and verifies the session by
// loading the personalized meinewelt page.
func (w *Welt) Login(ctx context.Context, b ports.Browser, creds domain.Credentials) error {
	if err := b.Navigate(ctx, w.baseURL+"/"); err != nil {
		return fmt.Errorf("open start page: %w", err)
	}

	if err := b.Click(ctx, `button[data-component="LoginButton"]`); err != nil {
		return fmt.Errorf("open login menu: %w", err)
	}
	if err := b.Click(ctx, `button[data-qa="PageHeader.Login.Button.Login"]`); err != nil {
		return fmt.Errorf("open login form: %w", err)
	}

	if err := b.Fill(ctx, `input[name="username"]`, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := b.Fill(ctx, `input[name="password"]`, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := b.Click(ctx, `button[type="submit"]`); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	// The greeting only renders for an authenticated session.
	if err := b.Navigate(ctx, w.baseURL+"/meinewelt/"); err != nil {
		return fmt.Errorf("open meinewelt: %w", err)
	}
	if err := b.WaitVisible(ctx, `div[data-component-name="home"] div[name="greeting"]`); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, creds.Username)
	}

	w.debug("logged in", "user", creds.Username)
	return nil
}

// FetchPremium loads the article in the authenticated session. The premium
// badge stays visible after login; without it the article is public.
func (w *Welt) FetchPremium(ctx context.Context, b ports.Browser, url string) ([]byte, error) {
	if err := b.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	html, err := b.PageHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("page source %s: %w", url, err)
	}

	premium, err := w.isPremium([]byte(html))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	if !premium {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrPaywallMismatch)
	}

	return []byte(html), nil
}

func (w *Welt) debug(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
