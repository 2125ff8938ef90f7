package newspaper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

const (
	spiegelBaseURL  = "https://www.spiegel.de"
	spiegelLoginURL = "https://gruppenkonto.spiegel.de/anmelden.html"
)

// Teaser timestamps look like "13. März, 18.25 Uhr".
var spiegelTimeExpr = regexp.MustCompile(`(\d{1,2})\.\s(\p{L}+),\s(\d{1,2})\.(\d{2})\sUhr`)

// Spiegel indexes the daily news archive of spiegel.de and detects the S+
// paywall flag on article pages.
type Spiegel struct {
	fetcher  ports.Fetcher
	logger   *slog.Logger
	baseURL  string
	loginURL string
}

var _ Adapter = (*Spiegel)(nil)

// NewSpiegel wires the shared HTTP fetcher.
func NewSpiegel(fetcher ports.Fetcher, logger *slog.Logger) *Spiegel {
	return &Spiegel{
		fetcher:  fetcher,
		logger:   logger,
		baseURL:  spiegelBaseURL,
		loginURL: spiegelLoginURL,
	}
}

// ID identifies the adapter inside the registry.
func (s *Spiegel) ID() string {
	return "spiegel"
}

// Index parses the archive page for one day. The archive lists every article
// published on that day together with its publication time.
func (s *Spiegel) Index(ctx context.Context, day time.Time) ([]domain.IndexedArticle, error) {
	archiveURL := fmt.Sprintf("%s/nachrichtenarchiv/artikel-%s.html", s.baseURL, day.Format("02.01.2006"))

	body, err := s.fetcher.Get(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", day.Format("2006-01-02"), err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}

	var articles []domain.IndexedArticle
	doc.Find(`section[data-area="article-teaser-list"] div[data-block-el="articleTeaser"]`).
		Each(func(_ int, teaser *goquery.Selection) {
			// Advertisement teasers carry an h3 headline.
			if teaser.Find("h3").Length() > 0 {
				return
			}

			href, ok := teaser.Find("a").First().Attr("href")
			if !ok || href == "" {
				return
			}

			articles = append(articles, domain.IndexedArticle{
				URL:         href,
				NewspaperID: s.ID(),
				PublishedAt: s.parseTeaserTime(teaser.Text(), day),
				IndexDay:    day,
			})
		})

	s.debug("indexed archive day", "day", day.Format("2006-01-02"), "articles", len(articles))
	return articles, nil
}

func (s *Spiegel) parseTeaserTime(text string, day time.Time) time.Time {
	match := spiegelTimeExpr.FindStringSubmatch(text)
	if match == nil {
		return day
	}

	month, ok := germanMonth(match[2])
	if !ok {
		return day
	}

	dayOfMonth, _ := strconv.Atoi(match[1])
	hour, _ := strconv.Atoi(match[3])
	minute, _ := strconv.Atoi(match[4])

	return time.Date(day.Year(), month, dayOfMonth, hour, minute, 0, 0, berlin())
}

// FetchPublic retrieves an article over plain HTTP. The S+ flag in the
// article header marks paywalled content.
func (s *Spiegel) FetchPublic(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, false, err
	}

	premium, err := s.isPremium(body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", url, err)
	}

	return body, premium, nil
}

func (s *Spiegel) isPremium(html []byte) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse article: %w", err)
	}

	header := doc.Find(`header[data-area="intro"]`)
	if header.Length() == 0 {
		return false, fmt.Errorf("article header missing, cannot determine paywall status")
	}

	return header.Find(`svg[id^="spon-spplus-flag"]`).Length() > 0, nil
}

// Login drives the Spiegel group-account flow: the username and password are
// submitted on separate screens of the same form.
func (s *Spiegel) Login(ctx context.Context, b ports.Browser, creds domain.Credentials) error {
	if err := b.Navigate(ctx, s.loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := b.Fill(ctx, `[name="loginform:username"]`, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := b.Click(ctx, `[name="loginform:submit"]`); err != nil {
		return fmt.Errorf("submit username: %w", err)
	}

	if err := b.Fill(ctx, `[name="loginform:password"]`, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := b.Click(ctx, `[name="loginform:submit"]`); err != nil {
		return fmt.Errorf("submit password: %w", err)
	}

	// The continue link only appears once the account is authenticated.
	if err := b.WaitVisible(ctx, "a.tostart"); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, creds.Username)
	}
	if err := b.Click(ctx, "a.tostart"); err != nil {
		return fmt.Errorf("leave login page: %w", err)
	}

	s.debug("logged in", "user", creds.Username)
	return nil
}

// FetchPremium loads the article in the authenticated session. The S+ flag
// stays on the page after login, so its absence means the article was never
// premium in the first place.
func (s *Spiegel) FetchPremium(ctx context.Context, b ports.Browser, url string) ([]byte, error) {
	if err := b.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	html, err := b.PageHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("page source %s: %w", url, err)
	}

	premium, err := s.isPremium([]byte(html))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	if !premium {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrPaywallMismatch)
	}

	return []byte(html), nil
}

func (s *Spiegel) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
