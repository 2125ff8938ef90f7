package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSummary_SendsForm(t *testing.T) {
	var gotPath, gotChatID, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
	}))
	defer server.Close()

	notifier := NewNotifier("123:abc", "42")
	notifier.apiBaseURL = server.URL

	err := notifier.PublishSummary(context.Background(), "spiegel index: 12 total, 12 succeeded, 0 skipped, 0 failed")
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotChatID)
	assert.Contains(t, gotText, "12 succeeded")
}

func TestPublishSummary_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	notifier := NewNotifier("123:abc", "42")
	notifier.apiBaseURL = server.URL

	err := notifier.PublishSummary(context.Background(), "summary")
	assert.Error(t, err)
}

func TestPublishSummary_Misconfigured(t *testing.T) {
	err := NewNotifier("", "").PublishSummary(context.Background(), "summary")
	assert.Error(t, err)
}
