package domain

import "time"

// IndexedArticle is a discovered article reference prior to content retrieval.
// The URL (query string stripped) is the unique key across all tables.
type IndexedArticle struct {
	URL         string
	NewspaperID string
	PublishedAt time.Time
	IndexDay    time.Time
	IndexedAt   time.Time
	Premium     *bool
	ScrapedAt   *time.Time
	ScrapeError string
}

// IsPremium reports whether the article is known to be paywalled. Premium
// stays nil until the first public fetch determines the status.
func (a IndexedArticle) IsPremium() bool {
	return a.Premium != nil && *a.Premium
}

// ScrapedArticle holds the extracted content and metadata for one article.
type ScrapedArticle struct {
	URL         string
	NewspaperID string
	Title       string
	Authors     []string
	PublishedAt *time.Time
	Description string
	SiteName    string
	Language    string
	ImageURL    string
	CleanedText string
	RawHTML     []byte
	ScrapedAt   time.Time
}

// Token is a single token of the cleaned text with its part-of-speech tag.
type Token struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// Entity is a named entity recognized in the cleaned text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// ProcessedArticle is the linguistic feature set for one scraped article.
type ProcessedArticle struct {
	URL           string
	Tokens        []Token
	Entities      []Entity
	TokenCount    int
	SentenceCount int
	ProcessedAt   time.Time
}

// Credentials authenticate a premium subscription on a newspaper site.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials were provided.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}
