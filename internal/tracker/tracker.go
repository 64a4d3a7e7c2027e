// Package tracker is the client side of sitepulse. It owns visitor and session
// identity, observes navigations and emits events to a collector. The script
// served at /js/script.js does the same in the browser.
package tracker

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"sitepulse/internal/events"
	"sitepulse/internal/pkg/loopback"
)

// Config wires a Tracker.
type Config struct {
	WebsiteID string
	Domain    string
	Transport Transport
	Storage   Storage
	Policy    ComparePolicy
	Logger    *slog.Logger
	// Now stamps payloads; defaults to time.Now.
	Now func() time.Time
	// SendTimeout bounds a single delivery; defaults to 10 seconds.
	SendTimeout time.Duration
}

// Anchor is the subset of a link element the tracker needs.
type Anchor struct {
	Href string
	Text string
}

// Tracker instruments one page context. All methods are safe for concurrent use
// and never block on the network.
type Tracker struct {
	cfg      Config
	identity *Identity
	nav      *Navigator
	logger   *slog.Logger

	mu       sync.RWMutex
	enabled  bool
	location *url.URL
	referrer string

	inflight sync.WaitGroup
}

func New(cfg Config) *Tracker {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cfg:      cfg,
		identity: NewIdentity(cfg.Storage),
		nav:      NewNavigator(cfg.Policy),
		logger:   logger,
	}
}

// Identity exposes the identifiers the tracker sends.
func (t *Tracker) Identity() *Identity {
	return t.identity
}

// Enabled reports whether Start accepted the page.
func (t *Tracker) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Start binds the tracker to the page at href and fires the initial pageview.
// Local origins and a missing website id or domain leave the tracker inert.
func (t *Tracker) Start(href, referrer string) {
	u, err := url.Parse(href)
	if err != nil {
		t.logger.Warn("Ignoring unparseable page location", slog.String("href", href), slog.Any("error", err))
		return
	}
	if t.cfg.WebsiteID == "" || t.cfg.Domain == "" {
		t.logger.Warn("Missing website ID or domain")
		return
	}
	if loopback.IsLocalURL(u) {
		t.logger.Debug("Ignoring localhost or file protocol", slog.String("href", href))
		return
	}

	t.mu.Lock()
	t.enabled = true
	t.location = u
	t.referrer = referrer
	t.mu.Unlock()

	t.nav.Reset(u)
	t.Track(events.EventTypePageView, nil)
}

// PushState handles a history push to href.
func (t *Tracker) PushState(href string) {
	t.navigate(href)
}

// PopState handles back/forward navigation to href.
func (t *Tracker) PopState(href string) {
	t.navigate(href)
}

func (t *Tracker) navigate(href string) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	u, err := t.location.Parse(href)
	if err != nil {
		t.mu.Unlock()
		return
	}
	t.location = u
	t.mu.Unlock()

	if t.nav.Changed(u) {
		t.Track(events.EventTypePageView, nil)
	}
}

// Track builds the payload now and delivers it in the background. Delivery
// failures are logged and dropped; success refreshes the session.
func (t *Tracker) Track(eventType events.EventType, extra map[string]any) {
	payload, ok := t.payload(eventType, extra)
	if !ok {
		return
	}

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.deliver(payload)
	}()
}

func (t *Tracker) payload(eventType events.EventType, extra map[string]any) (*events.RawEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.enabled {
		return nil, false
	}

	return &events.RawEvent{
		WebsiteID: t.cfg.WebsiteID,
		Domain:    t.cfg.Domain,
		Href:      t.location.String(),
		Referrer:  t.referrer,
		Timestamp: t.cfg.Now().UTC().Format(time.RFC3339Nano),
		VisitorID: t.identity.VisitorID(),
		SessionID: t.identity.SessionID(),
		Type:      string(eventType),
		ExtraData: extra,
	}, true
}

func (t *Tracker) deliver(payload *events.RawEvent) {
	if t.cfg.Transport == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SendTimeout)
	defer cancel()

	if err := t.cfg.Transport.Send(ctx, payload); err != nil {
		t.logger.Warn("Error sending event data",
			slog.String("type", payload.Type),
			slog.Any("error", err))
		return
	}
	t.identity.RefreshSession()
}

// Trigger records a named conversion. Unrecognized names are sent as custom
// events carrying the name under eventName.
func (t *Tracker) Trigger(name string, data map[string]any) {
	switch events.EventType(name) {
	case events.EventTypeInitiateCheckout:
		t.Track(events.EventTypeInitiateCheckout, map[string]any{})
	case events.EventTypeSignup, events.EventTypePayment:
		t.Track(events.EventType(name), data)
	default:
		extra := make(map[string]any, len(data)+1)
		extra[events.ExtraEventName] = name
		for k, v := range data {
			extra[k] = v
		}
		t.Track(events.EventTypeCustom, extra)
	}
}

// Click records activation of a link. Links to the page's own hostname are
// internal, everything else is external.
func (t *Tracker) Click(a *Anchor) {
	if a == nil || a.Href == "" || !t.Enabled() {
		return
	}

	t.mu.RLock()
	current := t.location
	t.mu.RUnlock()

	target, err := current.Parse(a.Href)
	if err != nil {
		return
	}

	eventType := events.EventTypeInternalLink
	if !strings.EqualFold(target.Hostname(), current.Hostname()) {
		eventType = events.EventTypeExternalLink
	}
	t.Track(eventType, map[string]any{
		events.ExtraURL:  target.String(),
		events.ExtraText: strings.TrimSpace(a.Text),
	})
}

// KeyDown treats Enter and Space on a link like a click.
func (t *Tracker) KeyDown(key string, a *Anchor) {
	if key == "Enter" || key == " " {
		t.Click(a)
	}
}

// Flush waits for in-flight deliveries or until ctx is done.
func (t *Tracker) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
