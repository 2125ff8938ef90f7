package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/infrastructure/storage"
	"newspaperscraper/internal/ports"
)

// fakeAdapter serves a fixed archive and canned per-URL fetch results.
type fakeAdapter struct {
	id         string
	archive    map[string][]domain.IndexedArticle
	pages      map[string]fakePage
	loginErr   error
	loginCalls int
}

type fakePage struct {
	html    string
	premium bool
	err     error
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Index(_ context.Context, day time.Time) ([]domain.IndexedArticle, error) {
	articles, ok := f.archive[day.Format("2006-01-02")]
	if !ok {
		return nil, fmt.Errorf("archive unavailable: %w", domain.ErrNotFound)
	}
	return articles, nil
}

func (f *fakeAdapter) FetchPublic(_ context.Context, url string) ([]byte, bool, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if page.err != nil {
		return nil, false, page.err
	}
	return []byte(page.html), page.premium, nil
}

func (f *fakeAdapter) Login(_ context.Context, _ ports.Browser, creds domain.Credentials) error {
	f.loginCalls++
	if f.loginErr != nil {
		return f.loginErr
	}
	return nil
}

func (f *fakeAdapter) FetchPremium(_ context.Context, _ ports.Browser, url string) ([]byte, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if page.err != nil {
		return nil, page.err
	}
	if !page.premium {
		return nil, domain.ErrPaywallMismatch
	}
	return []byte(page.html), nil
}

// fakeExtractor turns HTML into a minimal scraped article.
type fakeExtractor struct{}

func (fakeExtractor) Extract(pageURL string, html []byte) (domain.ScrapedArticle, error) {
	if len(html) == 0 {
		return domain.ScrapedArticle{}, fmt.Errorf("empty document")
	}
	return domain.ScrapedArticle{
		URL:         pageURL,
		Title:       "Titel",
		CleanedText: strings.TrimSpace(string(html)),
		RawHTML:     html,
	}, nil
}

type fakeAnnotator struct {
	failOn string
	calls  int
}

func (a *fakeAnnotator) Annotate(_ context.Context, url, text string) (domain.ProcessedArticle, error) {
	a.calls++
	if url == a.failOn {
		return domain.ProcessedArticle{}, fmt.Errorf("annotate %s: model error", url)
	}
	words := strings.Fields(text)
	tokens := make([]domain.Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, domain.Token{Text: w, Tag: "NN"})
	}
	return domain.ProcessedArticle{
		URL:           url,
		Tokens:        tokens,
		TokenCount:    len(tokens),
		SentenceCount: 1,
		ProcessedAt:   time.Now(),
	}, nil
}

type fakeBrowser struct {
	closed bool
}

func (b *fakeBrowser) Navigate(context.Context, string) error     { return nil }
func (b *fakeBrowser) WaitVisible(context.Context, string) error  { return nil }
func (b *fakeBrowser) Fill(context.Context, string, string) error { return nil }
func (b *fakeBrowser) Click(context.Context, string) error        { return nil }
func (b *fakeBrowser) PageHTML(context.Context) (string, error)   { return "", nil }
func (b *fakeBrowser) Close() error                               { b.closed = true; return nil }

func newTestPipeline(t *testing.T, adapter *fakeAdapter) (*Pipeline, *fakeAnnotator, *fakeBrowser) {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)

	annotator := &fakeAnnotator{}
	browser := &fakeBrowser{}

	pipeline := NewPipeline(PipelineDeps{
		Store:     store,
		Adapter:   adapter,
		Extractor: fakeExtractor{},
		Annotator: annotator,
		NewBrowser: func(context.Context) (ports.Browser, error) {
			return browser, nil
		},
	})
	t.Cleanup(func() { pipeline.Close() })

	return pipeline, annotator, browser
}

func testAdapter() *fakeAdapter {
	return &fakeAdapter{
		id: "spiegel",
		archive: map[string][]domain.IndexedArticle{
			"2024-03-13": {
				{URL: "https://example.com/free.html?ref=rss", NewspaperID: "spiegel", IndexDay: day(2024, 3, 13)},
				{URL: "https://example.com/plus.html", NewspaperID: "spiegel", IndexDay: day(2024, 3, 13)},
				{URL: "https://example.com/gone.html", NewspaperID: "spiegel", IndexDay: day(2024, 3, 13)},
			},
		},
		pages: map[string]fakePage{
			"https://example.com/free.html": {html: "Ein freier Artikel."},
			"https://example.com/plus.html": {html: "Ein Plus-Artikel.", premium: true},
			"https://example.com/gone.html": {err: domain.ErrNotFound},
		},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIndexDateRange_SkipsIndexedDaysOnRerun(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, testAdapter())
	ctx := context.Background()

	summary, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)

	summary, err = pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total, "an already indexed day should not be enumerated again")
	assert.Equal(t, 1, summary.Skipped)
}

func TestIndexDateRange_CanonicalizesURLs(t *testing.T) {
	adapter := testAdapter()
	pipeline, _, _ := newTestPipeline(t, adapter)
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)

	summary, err := pipeline.ScrapePublic(ctx)
	require.NoError(t, err)
	// The ?ref=rss URL must have been stored without its query string,
	// otherwise the fake fetch for free.html misses.
	assert.Equal(t, 1, summary.Succeeded)
}

func TestIndexDateRange_RecordsFailedDaysAndContinues(t *testing.T) {
	adapter := testAdapter()
	adapter.archive["2024-03-15"] = []domain.IndexedArticle{
		{URL: "https://example.com/later.html", NewspaperID: "spiegel", IndexDay: day(2024, 3, 15)},
	}
	pipeline, _, _ := newTestPipeline(t, adapter)

	// 2024-03-14 has no archive page; the range must still cover the 15th.
	summary, err := pipeline.IndexDateRange(context.Background(), day(2024, 3, 13), day(2024, 3, 15), true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.Succeeded)
}

func TestIndexDateRange_RejectsInvertedRange(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, testAdapter())

	_, err := pipeline.IndexDateRange(context.Background(), day(2024, 3, 15), day(2024, 3, 13), true)
	assert.Error(t, err)
}

func TestScrapePublic_ClassifiesAndRecordsFailures(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, testAdapter())
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)

	summary, err := pipeline.ScrapePublic(ctx)
	require.NoError(t, err, "per-article failures must not abort the stage")
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded, "the free article")
	assert.Equal(t, 1, summary.Skipped, "the paywalled article")
	assert.Equal(t, 1, summary.Failed, "the vanished article")

	// The failed article stays eligible for the next pass.
	summary, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Failed)
}

func TestScrapePremium_RequiresCredentials(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, testAdapter())

	_, err := pipeline.ScrapePremium(context.Background(), domain.Credentials{})
	require.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestScrapePremium_LogsInOnceAndScrapes(t *testing.T) {
	adapter := testAdapter()
	pipeline, _, _ := newTestPipeline(t, adapter)
	ctx := context.Background()
	creds := domain.Credentials{Username: "u", Password: "p"}

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)

	summary, err := pipeline.ScrapePremium(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, adapter.loginCalls)

	// Nothing left: the stage must not start a session or log in again.
	summary, err = pipeline.ScrapePremium(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 1, adapter.loginCalls)
}

func TestScrapePremium_MismatchFlipsArticlePublic(t *testing.T) {
	adapter := testAdapter()
	// Indexed as premium, but the page turns out to be freely readable.
	adapter.pages["https://example.com/plus.html"] = fakePage{html: "Doch frei.", premium: false}
	pipeline, _, _ := newTestPipeline(t, adapter)
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)

	// Mark the article premium the way a public pass would have.
	adapter.pages["https://example.com/plus.html"] = fakePage{html: "Doch frei.", premium: true}
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)

	adapter.pages["https://example.com/plus.html"] = fakePage{html: "Doch frei.", premium: false}
	summary, err := pipeline.ScrapePremium(ctx, domain.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Succeeded)

	// The flipped article is public work again.
	adapter.pages["https://example.com/plus.html"] = fakePage{html: "Doch frei."}
	summary, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestScrapePremium_LoginFailureAbortsStage(t *testing.T) {
	adapter := testAdapter()
	adapter.loginErr = domain.ErrAuthentication
	pipeline, _, _ := newTestPipeline(t, adapter)
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)

	_, err = pipeline.ScrapePremium(ctx, domain.Credentials{Username: "u", Password: "wrong"})
	require.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestProcess_AnnotatesOnlyOnce(t *testing.T) {
	pipeline, annotator, _ := newTestPipeline(t, testAdapter())
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)

	summary, err := pipeline.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, annotator.calls)

	summary, err = pipeline.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total, "processed articles must not be annotated again")
	assert.Equal(t, 1, annotator.calls)
}

func TestProcess_AnnotationFailureDoesNotAbort(t *testing.T) {
	pipeline, annotator, _ := newTestPipeline(t, testAdapter())
	annotator.failOn = "https://example.com/free.html"
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)

	summary, err := pipeline.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Succeeded)
}

func TestClose_ReleasesBrowserSession(t *testing.T) {
	adapter := testAdapter()
	pipeline, _, browser := newTestPipeline(t, adapter)
	ctx := context.Background()

	_, err := pipeline.IndexDateRange(ctx, day(2024, 3, 13), day(2024, 3, 13), true)
	require.NoError(t, err)
	_, err = pipeline.ScrapePublic(ctx)
	require.NoError(t, err)
	_, err = pipeline.ScrapePremium(ctx, domain.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, pipeline.Close())
	assert.True(t, browser.closed)
}

func TestRun_EndToEnd(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, testAdapter())
	ctx := context.Background()

	err := pipeline.Run(ctx, day(2024, 3, 13), day(2024, 3, 13),
		domain.Credentials{Username: "u", Password: "p"}, true)
	require.NoError(t, err)

	// A second full run over the same range is a no-op apart from the
	// article that keeps failing to fetch.
	err = pipeline.Run(ctx, day(2024, 3, 13), day(2024, 3, 13),
		domain.Credentials{Username: "u", Password: "p"}, true)
	require.NoError(t, err)
}
