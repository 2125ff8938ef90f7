package newspaper

import (
	"context"
	"fmt"
	"time"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

// Adapter captures everything publication-specific: how to enumerate the
// archive for a day, how to fetch and classify a public article, and how to
// drive the site's login flow for paywalled content.
type Adapter interface {
	ID() string

	// Index enumerates candidate article URLs published on the given day
	// via the publication's public archive pages.
	Index(ctx context.Context, day time.Time) ([]domain.IndexedArticle, error)

	// FetchPublic retrieves raw HTML without authentication and reports
	// whether the article sits behind the paywall.
	FetchPublic(ctx context.Context, url string) (html []byte, premium bool, err error)

	// Login performs the site-specific authentication flow on the browser
	// session. Returns domain.ErrAuthentication when the post-login check
	// fails.
	Login(ctx context.Context, b ports.Browser, creds domain.Credentials) error

	// FetchPremium retrieves paywalled HTML through the authenticated
	// session. Returns domain.ErrPaywallMismatch when the article turns
	// out to be public.
	FetchPremium(ctx context.Context, b ports.Browser, url string) ([]byte, error)
}

// Registry keeps a mapping from newspaper identifiers to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	r.adapters[adapter.ID()] = adapter
}

// Resolve returns an adapter by newspaper identifier.
func (r *Registry) Resolve(id string) (Adapter, error) {
	if adapter, ok := r.adapters[id]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("newspaper %s is not registered", id)
}
