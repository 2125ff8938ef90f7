package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/newspaper"
	"newspaperscraper/internal/ports"
)

// BrowserFactory creates the headless-browser session lazily; it is only
// invoked when the premium stage actually has articles to fetch.
type BrowserFactory func(ctx context.Context) (ports.Browser, error)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store      ports.ArticleStore
	Adapter    newspaper.Adapter
	Extractor  ports.Extractor
	Annotator  ports.Annotator
	NewBrowser BrowserFactory
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline sequences indexing, public scraping, premium scraping and NLP
// processing for one newspaper over one store. Stages run sequentially and
// iterate articles one at a time; per-article failures are recorded against
// the article, store failures abort the stage.
type Pipeline struct {
	store      ports.ArticleStore
	adapter    newspaper.Adapter
	extractor  ports.Extractor
	annotator  ports.Annotator
	newBrowser BrowserFactory
	notifier   ports.Notifier
	logger     *slog.Logger

	browser ports.Browser
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		store:      deps.Store,
		adapter:    deps.Adapter,
		extractor:  deps.Extractor,
		annotator:  deps.Annotator,
		newBrowser: deps.NewBrowser,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
	}
}

// StageSummary aggregates the outcome of one pipeline stage.
type StageSummary struct {
	Stage     string
	Newspaper string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
}

func (s StageSummary) String() string {
	return fmt.Sprintf("%s %s: %d total, %d succeeded, %d skipped, %d failed",
		s.Newspaper, s.Stage, s.Total, s.Succeeded, s.Skipped, s.Failed)
}

// IndexDateRange enumerates the newspaper's archive for every day in the
// range and upserts discovered articles. Days already indexed are skipped
// unless skipExisting is false. Repeated runs never duplicate URLs.
func (p *Pipeline) IndexDateRange(ctx context.Context, from, to time.Time, skipExisting bool) (StageSummary, error) {
	summary := StageSummary{Stage: "index", Newspaper: p.adapter.ID()}

	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return summary, fmt.Errorf("invalid date range: %s after %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	indexed := map[string]bool{}
	if skipExisting {
		var err error
		indexed, err = p.store.IndexedDays(ctx, p.adapter.ID())
		if err != nil {
			return summary, fmt.Errorf("load indexed days: %w", err)
		}
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if indexed[day.Format("2006-01-02")] {
			summary.Skipped++
			continue
		}

		articles, err := p.adapter.Index(ctx, day)
		if err != nil {
			p.warn("index day failed", "day", day.Format("2006-01-02"), "error", err)
			summary.Failed++
			continue
		}

		for i := range articles {
			articles[i].URL = canonicalURL(articles[i].URL)
			articles[i].IndexedAt = time.Now()
		}

		inserted, err := p.store.UpsertIndexed(ctx, articles)
		if err != nil {
			return summary, fmt.Errorf("persist day %s: %w", day.Format("2006-01-02"), err)
		}

		summary.Total += len(articles)
		summary.Succeeded += inserted
		p.info("indexed day", "day", day.Format("2006-01-02"),
			"articles", len(articles), "new", inserted)
	}

	p.finishStage(ctx, summary)
	return summary, nil
}

// ScrapePublic fetches every unscraped public (or status-unknown) article,
// extracts its content and persists the scraped row. Articles that turn out
// to be paywalled are flagged premium and left for the premium stage.
func (p *Pipeline) ScrapePublic(ctx context.Context) (StageSummary, error) {
	summary := StageSummary{Stage: "scrape-public", Newspaper: p.adapter.ID()}

	articles, err := p.store.UnscrapedPublic(ctx, p.adapter.ID())
	if err != nil {
		return summary, fmt.Errorf("load unscraped: %w", err)
	}
	summary.Total = len(articles)

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		html, premium, err := p.adapter.FetchPublic(ctx, article.URL)
		if err != nil {
			if err := p.recordFailure(ctx, &summary, article.URL, err); err != nil {
				return summary, err
			}
			continue
		}

		if err := p.store.MarkPremium(ctx, article.URL, premium); err != nil {
			return summary, fmt.Errorf("mark premium: %w", err)
		}
		if premium {
			summary.Skipped++
			p.debug("article is paywalled", "url", article.URL)
			continue
		}

		if err := p.saveScraped(ctx, &summary, article.URL, html); err != nil {
			return summary, err
		}
	}

	p.finishStage(ctx, summary)
	return summary, nil
}

// ScrapePremium logs in once and fetches every unscraped paywalled article
// through the authenticated browser session. A paywall mismatch flips the
// article back to public so the next public pass retrieves it.
func (p *Pipeline) ScrapePremium(ctx context.Context, creds domain.Credentials) (StageSummary, error) {
	summary := StageSummary{Stage: "scrape-premium", Newspaper: p.adapter.ID()}

	if creds.Empty() {
		return summary, fmt.Errorf("no credentials provided: %w", domain.ErrAuthentication)
	}

	articles, err := p.store.UnscrapedPremium(ctx, p.adapter.ID())
	if err != nil {
		return summary, fmt.Errorf("load unscraped: %w", err)
	}
	summary.Total = len(articles)
	if len(articles) == 0 {
		p.info("no premium articles to scrape")
		return summary, nil
	}

	browser, err := p.session(ctx)
	if err != nil {
		return summary, fmt.Errorf("start browser: %w", err)
	}

	if err := p.adapter.Login(ctx, browser, creds); err != nil {
		return summary, fmt.Errorf("login %s: %w", p.adapter.ID(), err)
	}

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		html, err := p.adapter.FetchPremium(ctx, browser, article.URL)
		if err != nil {
			if errors.Is(err, domain.ErrPaywallMismatch) {
				if err := p.store.MarkPremium(ctx, article.URL, false); err != nil {
					return summary, fmt.Errorf("mark public: %w", err)
				}
				summary.Skipped++
				p.debug("paywall mismatch, flagged public", "url", article.URL)
				continue
			}
			if err := p.recordFailure(ctx, &summary, article.URL, err); err != nil {
				return summary, err
			}
			continue
		}

		if err := p.saveScraped(ctx, &summary, article.URL, html); err != nil {
			return summary, err
		}
	}

	p.finishStage(ctx, summary)
	return summary, nil
}

// Process annotates the cleaned text of every scraped article that has no
// processed row yet.
func (p *Pipeline) Process(ctx context.Context) (StageSummary, error) {
	summary := StageSummary{Stage: "nlp", Newspaper: p.adapter.ID()}

	articles, err := p.store.UnprocessedScraped(ctx, p.adapter.ID())
	if err != nil {
		return summary, fmt.Errorf("load unprocessed: %w", err)
	}
	summary.Total = len(articles)

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		processed, err := p.annotator.Annotate(ctx, article.URL, article.CleanedText)
		if err != nil {
			summary.Failed++
			p.warn("annotation failed", "url", article.URL, "error", err)
			continue
		}

		if err := p.store.SaveProcessed(ctx, processed); err != nil {
			return summary, fmt.Errorf("persist processed: %w", err)
		}
		summary.Succeeded++
	}

	p.finishStage(ctx, summary)
	return summary, nil
}

// Run executes all stages in order. The premium stage only runs when
// credentials are available.
func (p *Pipeline) Run(ctx context.Context, from, to time.Time, creds domain.Credentials, skipExisting bool) error {
	if _, err := p.IndexDateRange(ctx, from, to, skipExisting); err != nil {
		return err
	}
	if _, err := p.ScrapePublic(ctx); err != nil {
		return err
	}
	if !creds.Empty() {
		if _, err := p.ScrapePremium(ctx, creds); err != nil {
			return err
		}
	}
	_, err := p.Process(ctx)
	return err
}

// Close releases the browser session and the store, regardless of which
// stage failed.
func (p *Pipeline) Close() error {
	var firstErr error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			firstErr = err
		}
		p.browser = nil
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pipeline) saveScraped(ctx context.Context, summary *StageSummary, articleURL string, html []byte) error {
	scraped, err := p.extractor.Extract(articleURL, html)
	if err != nil {
		return p.recordFailure(ctx, summary, articleURL, err)
	}

	scraped.NewspaperID = p.adapter.ID()
	scraped.ScrapedAt = time.Now()

	if err := p.store.SaveScraped(ctx, scraped); err != nil {
		return fmt.Errorf("persist scraped %s: %w", articleURL, err)
	}

	summary.Succeeded++
	p.debug("article scraped", "url", articleURL)
	return nil
}

// recordFailure logs a per-article failure and stores it on the article.
// Only a store write failure is returned as an error.
func (p *Pipeline) recordFailure(ctx context.Context, summary *StageSummary, articleURL string, cause error) error {
	summary.Failed++
	p.warn("article failed", "url", articleURL, "error", cause)

	if err := p.store.RecordScrapeError(ctx, articleURL, cause.Error()); err != nil {
		return fmt.Errorf("record failure %s: %w", articleURL, err)
	}
	return nil
}

func (p *Pipeline) session(ctx context.Context) (ports.Browser, error) {
	if p.browser != nil {
		return p.browser, nil
	}
	if p.newBrowser == nil {
		return nil, fmt.Errorf("no browser factory configured")
	}

	browser, err := p.newBrowser(ctx)
	if err != nil {
		return nil, err
	}
	p.browser = browser
	return browser, nil
}

func (p *Pipeline) finishStage(ctx context.Context, summary StageSummary) {
	p.info("stage finished", "stage", summary.Stage,
		"total", summary.Total, "succeeded", summary.Succeeded,
		"skipped", summary.Skipped, "failed", summary.Failed)

	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSummary(ctx, summary.String()); err != nil {
		p.warn("publish summary failed", "error", err)
	}
}

// canonicalURL strips query strings and fragments so the same article always
// maps to the same key.
func canonicalURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
