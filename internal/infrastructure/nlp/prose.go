package nlp

import (
	"context"
	"fmt"
	"time"

	prose "github.com/jdkato/prose/v2"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

// Annotator derives tokens, part-of-speech tags, named entities and sentence
// counts from cleaned article text. All work happens in-process.
type Annotator struct{}

var _ ports.Annotator = (*Annotator)(nil)

// New builds the annotation component.
func New() *Annotator {
	return &Annotator{}
}

// Annotate runs the linguistic pipeline over one article's cleaned text.
func (a *Annotator) Annotate(ctx context.Context, url, text string) (domain.ProcessedArticle, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProcessedArticle{}, err
	}
	if text == "" {
		return domain.ProcessedArticle{}, fmt.Errorf("article %s has no cleaned text", url)
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return domain.ProcessedArticle{}, fmt.Errorf("annotate %s: %w", url, err)
	}

	proseTokens := doc.Tokens()
	tokens := make([]domain.Token, 0, len(proseTokens))
	for _, tok := range proseTokens {
		tokens = append(tokens, domain.Token{Text: tok.Text, Tag: tok.Tag})
	}

	proseEntities := doc.Entities()
	entities := make([]domain.Entity, 0, len(proseEntities))
	for _, ent := range proseEntities {
		entities = append(entities, domain.Entity{Text: ent.Text, Label: ent.Label})
	}

	return domain.ProcessedArticle{
		URL:           url,
		Tokens:        tokens,
		Entities:      entities,
		TokenCount:    len(tokens),
		SentenceCount: len(doc.Sentences()),
		ProcessedAt:   time.Now(),
	}, nil
}
