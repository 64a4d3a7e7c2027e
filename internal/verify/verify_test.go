package verify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/notify"
)

const snippet = `<script defer src="https://stats.example.net/js/script.js" data-website-id="abc"></script>`

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverDomain(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "http://")
}

func onlyHTTP(domain string) []string {
	return []string{"http://" + domain}
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{
		"http://example.com",
		"https://example.com",
		"http://www.example.com",
		"https://www.example.com",
	}, Candidates("example.com"))
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomain(" https://Example.com/path "))
	assert.Equal(t, "example.com", NormalizeDomain("example.com"))
}

func TestCheckFindsSnippetAndNotifies(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html><head>" + snippet + "</head></html>"))
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	checker := NewChecker(time.Second, time.Minute, notifier, testLogger(), WithCandidates(onlyHTTP))

	result, err := checker.Check(context.Background(), serverDomain(server), snippet)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, server.URL, result.URL)
	assert.False(t, result.Cached)
	require.Len(t, notifier.msgs, 1)

	again, err := checker.Check(context.Background(), serverDomain(server), snippet)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, int32(1), hits.Load())
	assert.Len(t, notifier.msgs, 1)
}

func TestCheckReportsMissingSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>nothing here</html>"))
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	checker := NewChecker(time.Second, time.Minute, notifier, testLogger(), WithCandidates(onlyHTTP))

	result, err := checker.Check(context.Background(), serverDomain(server), snippet)
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Empty(t, notifier.msgs)
}

func TestCheckSkipsFailingCandidates(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(snippet))
	}))
	defer working.Close()

	checker := NewChecker(time.Second, time.Minute, nil, testLogger(), WithCandidates(func(string) []string {
		return []string{broken.URL, working.URL}
	}))

	result, err := checker.Check(context.Background(), "example.com", snippet)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, working.URL, result.URL)
}

func TestCheckRequiresInput(t *testing.T) {
	checker := NewChecker(time.Second, time.Minute, nil, testLogger())

	_, err := checker.Check(context.Background(), "", snippet)
	assert.ErrorIs(t, err, ErrMissingInput)
	_, err = checker.Check(context.Background(), "example.com", "  ")
	assert.ErrorIs(t, err, ErrMissingInput)
}
