package newspaper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaperscraper/internal/domain"
)

// stubFetcher serves canned bodies keyed by URL.
type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrNotFound)
	}
	return []byte(body), nil
}

// scriptBrowser records the interaction sequence and serves one page source.
// Selectors listed in missing make WaitVisible fail.
type scriptBrowser struct {
	actions []string
	filled  map[string]string
	missing map[string]bool
	html    string
}

func newScriptBrowser() *scriptBrowser {
	return &scriptBrowser{filled: map[string]string{}, missing: map[string]bool{}}
}

func (b *scriptBrowser) Navigate(_ context.Context, url string) error {
	b.actions = append(b.actions, "navigate "+url)
	return nil
}

func (b *scriptBrowser) WaitVisible(_ context.Context, selector string) error {
	b.actions = append(b.actions, "wait "+selector)
	if b.missing[selector] {
		return fmt.Errorf("selector %s not visible", selector)
	}
	return nil
}

func (b *scriptBrowser) Fill(_ context.Context, selector, value string) error {
	b.actions = append(b.actions, "fill "+selector)
	b.filled[selector] = value
	return nil
}

func (b *scriptBrowser) Click(_ context.Context, selector string) error {
	b.actions = append(b.actions, "click "+selector)
	return nil
}

func (b *scriptBrowser) PageHTML(_ context.Context) (string, error) {
	return b.html, nil
}

func (b *scriptBrowser) Close() error { return nil }

func TestRegistry_ResolveRegistered(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewSpiegel(&stubFetcher{}, nil))

	adapter, err := registry.Resolve("spiegel")
	require.NoError(t, err)
	assert.Equal(t, "spiegel", adapter.ID())

	_, err = registry.Resolve("taz")
	assert.Error(t, err)
}

func TestGermanMonth(t *testing.T) {
	month, ok := germanMonth("März")
	require.True(t, ok)
	assert.Equal(t, time.March, month)

	month, ok = germanMonth("Dezember")
	require.True(t, ok)
	assert.Equal(t, time.December, month)

	_, ok = germanMonth("Brumaire")
	assert.False(t, ok)
}
