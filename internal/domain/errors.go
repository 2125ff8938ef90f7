package domain

import "errors"

// Per-article fetch failures. The pipeline records these against the article
// and continues with the batch; only store failures abort a stage.
var (
	// ErrNotFound signals the article page is gone (HTTP 404/410).
	ErrNotFound = errors.New("article not found")

	// ErrRateLimited signals the site throttled the request (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthentication signals a failed login with the given credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrPaywallMismatch signals a premium fetch landed on a public article.
	ErrPaywallMismatch = errors.New("article is not behind the paywall")

	// ErrPaywalled signals a public fetch hit premium content.
	ErrPaywalled = errors.New("article is behind the paywall")
)
