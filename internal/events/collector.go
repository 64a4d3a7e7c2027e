package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sitepulse/internal/websites"
)

// SiteLookup reports whether a website id is registered.
type SiteLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// DefaultClockSkew is how far ahead of the server a client timestamp may be.
const DefaultClockSkew = 5 * time.Minute

// Collector validates, enriches and stores incoming events.
type Collector struct {
	store    Store
	sites    SiteLookup
	enricher *Enricher
	logger   *slog.Logger
	now      func() time.Time
	skew     time.Duration
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithClock overrides the server clock.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

// WithClockSkew overrides the accepted client clock skew.
func WithClockSkew(skew time.Duration) CollectorOption {
	return func(c *Collector) {
		c.skew = skew
	}
}

// NewCollector creates a Collector.
func NewCollector(store Store, sites SiteLookup, enricher *Enricher, logger *slog.Logger, opts ...CollectorOption) *Collector {
	if enricher == nil {
		enricher = NewEnricher(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		store:    store,
		sites:    sites,
		enricher: enricher,
		logger:   logger,
		now:      time.Now,
		skew:     DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect turns raw into a stored Event.
//
// Errors are *ValidationError for malformed payloads, *websites.WebsiteNotFoundError
// for unregistered sites and *StorageError when persistence fails.
func (c *Collector) Collect(ctx context.Context, raw *RawEvent, rc RequestContext) (*Event, error) {
	event, err := Validate(raw)
	if err != nil {
		c.logger.Debug("Rejected invalid event", slog.Any("error", err))
		return nil, err
	}

	exists, err := c.sites.Exists(ctx, event.WebsiteID)
	if err != nil {
		c.logger.Error("Failed to look up website", slog.String("website_id", event.WebsiteID), slog.Any("error", err))
		return nil, &StorageError{Op: "lookup", Err: err}
	}
	if !exists {
		return nil, websites.NewWebsiteNotFoundError(event.WebsiteID)
	}

	event.Extra = event.Extra.Merge(c.enricher.Enrich(rc))

	now := c.now().UTC()
	event.OccurredAt = resolveOccurredAt(event.OccurredAt, now, c.skew)
	event.CreatedAt = now

	if err := c.store.Insert(ctx, event); err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		return nil, &StorageError{Op: "insert", Err: err}
	}

	c.logger.Debug("Event collected",
		slog.String("website_id", event.WebsiteID),
		slog.String("type", string(event.EventType)),
		slog.Uint64("id", uint64(event.ID)))
	return event, nil
}
