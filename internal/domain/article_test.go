package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexedArticle_IsPremium(t *testing.T) {
	var article IndexedArticle
	assert.False(t, article.IsPremium(), "unknown status is not premium")

	public := false
	article.Premium = &public
	assert.False(t, article.IsPremium())

	premium := true
	article.Premium = &premium
	assert.True(t, article.IsPremium())
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.True(t, Credentials{Username: "u"}.Empty())
	assert.True(t, Credentials{Password: "p"}.Empty())
	assert.False(t, Credentials{Username: "u", Password: "p"}.Empty())
}
