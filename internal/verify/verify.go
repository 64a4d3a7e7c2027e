// Package verify checks that a website serves the tracking snippet.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"sitepulse/internal/notify"
)

// ErrMissingInput is returned when the domain or the snippet is empty.
var ErrMissingInput = errors.New("domain and script are required")

// maxPageBytes caps how much of a page is searched for the snippet.
const maxPageBytes = 2 << 20

// Result of one installation check.
type Result struct {
	Found  bool   `json:"success"`
	URL    string `json:"url,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

// Checker probes a domain's home page for a snippet.
type Checker struct {
	client     *http.Client
	found      *cache.Cache
	notifier   notify.Notifier
	logger     *slog.Logger
	candidates func(domain string) []string
}

type Option func(*Checker)

// WithCandidates replaces the probed URL list.
func WithCandidates(fn func(domain string) []string) Option {
	return func(c *Checker) { c.candidates = fn }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// NewChecker creates a Checker. Positive results are remembered for ttl.
func NewChecker(timeout, ttl time.Duration, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Checker {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	c := &Checker{
		client:     &http.Client{Timeout: timeout},
		found:      cache.New(ttl, 2*ttl),
		notifier:   notifier,
		logger:     logger,
		candidates: Candidates,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeDomain strips scheme, path and case from user input.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}

// Candidates lists the URLs probed for domain, in order.
func Candidates(domain string) []string {
	return []string{
		"http://" + domain,
		"https://" + domain,
		"http://www." + domain,
		"https://www." + domain,
	}
}

// Check probes every candidate URL until one serves snippet. Unreachable
// candidates are skipped; only missing input is an error.
func (c *Checker) Check(ctx context.Context, domain, snippet string) (Result, error) {
	domain = NormalizeDomain(domain)
	if domain == "" || strings.TrimSpace(snippet) == "" {
		return Result{}, ErrMissingInput
	}

	key := domain + "\x00" + snippet
	if url, ok := c.found.Get(key); ok {
		return Result{Found: true, URL: url.(string), Cached: true}, nil
	}

	for _, url := range c.candidates(domain) {
		ok, err := c.probe(ctx, url, snippet)
		if err != nil {
			c.logger.Debug("Install check probe failed", slog.String("url", url), slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		c.found.SetDefault(key, url)
		c.logger.Info("Tracking script found", slog.String("domain", domain), slog.String("url", url))
		c.announce(ctx, domain, url)
		return Result{Found: true, URL: url}, nil
	}

	return Result{Found: false}, nil
}

func (c *Checker) probe(ctx context.Context, url, snippet string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(page), snippet), nil
}

func (c *Checker) announce(ctx context.Context, domain, url string) {
	err := c.notifier.Notify(ctx, notify.Message{
		Title:       "Tracking script installed",
		Description: fmt.Sprintf("sitepulse is now live on %s", domain),
		URL:         url,
		Color:       0x2ecc71,
		Fields:      []notify.Field{{Name: "Domain", Value: domain, Inline: true}},
	})
	if err != nil {
		c.logger.Warn("Failed to send install notification", slog.String("domain", domain), slog.Any("error", err))
	}
}
