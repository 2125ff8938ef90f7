package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// Extractor turns raw article HTML into structured content and metadata
// using go-readability for the body and meta/OpenGraph tags for the rest.
type Extractor struct{}

var _ ports.Extractor = (*Extractor)(nil)

// New builds the extraction component.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses one article page. The raw HTML is kept alongside the
// cleaned text so a re-parse never requires a re-fetch.
func (e *Extractor) Extract(pageURL string, html []byte) (domain.ScrapedArticle, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.ScrapedArticle{}, fmt.Errorf("invalid url %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return domain.ScrapedArticle{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	result := domain.ScrapedArticle{
		URL:         pageURL,
		Title:       strings.TrimSpace(article.Title),
		Authors:     splitAuthors(article.Byline),
		Description: strings.TrimSpace(article.Excerpt),
		SiteName:    strings.TrimSpace(article.SiteName),
		ImageURL:    article.Image,
		CleanedText: normalizeText(article.TextContent),
		RawHTML:     html,
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		// Readability already produced a usable article; meta tags are
		// best effort.
		return result, nil
	}
	e.applyMeta(doc, &result)

	return result, nil
}

func (e *Extractor) applyMeta(doc *goquery.Document, article *domain.ScrapedArticle) {
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		article.Language = strings.TrimSpace(lang)
	}

	if article.Description == "" {
		article.Description = metaContent(doc, `meta[name="description"]`)
	}
	if article.SiteName == "" {
		article.SiteName = metaContent(doc, `meta[property="og:site_name"]`)
	}
	if article.ImageURL == "" {
		article.ImageURL = metaContent(doc, `meta[property="og:image"]`)
	}
	if len(article.Authors) == 0 {
		article.Authors = splitAuthors(metaContent(doc, `meta[name="author"]`))
	}

	if published := parsePublishDate(doc); published != nil {
		article.PublishedAt = published
	}
}

func parsePublishDate(doc *goquery.Document) *time.Time {
	raw := metaContent(doc, `meta[property="article:published_time"]`)
	if raw == "" {
		raw = metaContent(doc, `meta[name="date"]`)
	}
	if raw == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed
	}
	if parsed, err := dateparse.ParseAny(raw); err == nil {
		return &parsed
	}
	return nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func splitAuthors(byline string) []string {
	byline = strings.TrimSpace(byline)
	byline = strings.TrimPrefix(byline, "Von ")
	byline = strings.TrimPrefix(byline, "By ")
	if byline == "" {
		return nil
	}

	byline = strings.ReplaceAll(byline, " und ", ",")
	byline = strings.ReplaceAll(byline, " and ", ",")

	var authors []string
	for _, part := range strings.Split(byline, ",") {
		if name := strings.TrimSpace(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
