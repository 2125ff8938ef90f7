package nlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotate_TokensAndSentences(t *testing.T) {
	text := "Angela Merkel visited Paris on Wednesday. The talks lasted two hours."

	processed, err := New().Annotate(context.Background(), "https://blatt.example.com/a-1.html", text)
	require.NoError(t, err)

	assert.Equal(t, "https://blatt.example.com/a-1.html", processed.URL)
	assert.Equal(t, 2, processed.SentenceCount)
	assert.Equal(t, len(processed.Tokens), processed.TokenCount)
	assert.NotEmpty(t, processed.Tokens)
	assert.False(t, processed.ProcessedAt.IsZero())

	var words []string
	for _, token := range processed.Tokens {
		words = append(words, token.Text)
		assert.NotEmpty(t, token.Tag, "every token carries a part-of-speech tag")
	}
	assert.Contains(t, words, "Paris")
}

func TestAnnotate_EmptyText(t *testing.T) {
	_, err := New().Annotate(context.Background(), "https://blatt.example.com/leer.html", "")
	assert.Error(t, err)
}

func TestAnnotate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Annotate(ctx, "https://blatt.example.com/a-1.html", "Some text.")
	require.ErrorIs(t, err, context.Canceled)
}
