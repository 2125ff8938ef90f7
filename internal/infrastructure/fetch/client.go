package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"newspaperscraper/internal/config"
	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

const maxBodyBytes = 8 << 20

// Client is the shared plain-HTTP fetcher for archive and public article
// pages. It enforces a per-request delay and honors robots.txt per host.
type Client struct {
	http          *http.Client
	userAgent     string
	delay         time.Duration
	respectRobots bool

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
	last   time.Time
}

var _ ports.Fetcher = (*Client)(nil)

// NewClient builds a fetcher from the HTTP config section.
func NewClient(cfg config.HTTPConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		http:          &http.Client{Timeout: timeout},
		userAgent:     cfg.UserAgent,
		delay:         time.Duration(cfg.DelayMillis) * time.Millisecond,
		respectRobots: cfg.RespectRobots,
		robots:        map[string]*robotstxt.RobotsData{},
	}
}

// Get retrieves a single page. Missing pages map to domain.ErrNotFound and
// throttling maps to domain.ErrRateLimited so callers can record them
// per article instead of aborting the batch.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	if c.respectRobots {
		allowed, err := c.allowed(ctx, parsed)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
		}
	}

	c.throttle(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", rawURL, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", rawURL, domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}

	return body, nil
}

// throttle spaces requests out; the pipeline iterates rows one at a time, so
// a simple last-request timestamp is enough.
func (c *Client) throttle(ctx context.Context) {
	if c.delay <= 0 {
		return
	}

	c.mu.Lock()
	wait := c.delay - time.Since(c.last)
	c.last = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return
	}

	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func (c *Client) allowed(ctx context.Context, u *url.URL) (bool, error) {
	data, err := c.robotsFor(ctx, u)
	if err != nil {
		// Unreachable robots.txt is treated as allow-all.
		return true, nil
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.Path, c.userAgent), nil
}

func (c *Client) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Scheme + "://" + u.Host

	c.mu.Lock()
	data, ok := c.robots[host]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.robots[host] = data
	c.mu.Unlock()

	return data, nil
}
