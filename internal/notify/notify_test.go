package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookPostsEmbed(t *testing.T) {
	var got webhookBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sent := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := NewWebhook(server.URL, testLogger()).Notify(context.Background(), Message{
		Title:     "Installation verified",
		URL:       "https://example.com",
		Fields:    []Field{{Name: "Domain", Value: "example.com"}},
		Timestamp: sent,
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Installation verified", got.Embeds[0].Title)
	assert.Equal(t, "example.com", got.Embeds[0].Fields[0].Value)
	assert.True(t, sent.Equal(got.Embeds[0].Timestamp))
}

func TestWebhookReportsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewWebhook(server.URL, testLogger()).Notify(context.Background(), Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFromURL(t *testing.T) {
	assert.IsType(t, Nop{}, FromURL("", testLogger()))
	assert.IsType(t, &Webhook{}, FromURL("https://hooks.example.com/x", testLogger()))
	assert.NoError(t, Nop{}.Notify(context.Background(), Message{}))
}
