package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"newspaperscraper/internal/config"
	"newspaperscraper/internal/ports"
)

const actionTimeout = 30 * time.Second

// Session drives a single headless Chrome instance. One session is shared
// across all premium fetches of a pipeline run so the login cookies survive
// between articles.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

var _ ports.Browser = (*Session)(nil)

// NewSession launches the browser. The caller owns the session and must
// Close it when the premium stage finishes.
func NewSession(parent context.Context, cfg config.BrowserConfig) (*Session, error) {
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(width, height),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelCtx, cancelAlloc},
	}

	// Start the browser process eagerly so a missing Chrome binary fails
	// here instead of in the middle of a login flow.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return s, nil
}

// Navigate loads a page and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until the selector matches a visible node.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Fill types a value into the first node matching the selector.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Click clicks the first node matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// PageHTML returns the rendered HTML of the current page.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close tears down the browser process.
func (s *Session) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()

	return chromedp.Run(runCtx, actions...)
}
