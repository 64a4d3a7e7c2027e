// Package seeder fills a database with plausible traffic for demos and load checks.
// Events go through the same collector as live traffic, so they are validated
// and enriched like real ones.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/events"
	"sitepulse/internal/websites"
)

// DefaultDomains are seeded by Run when no domain is given.
var DefaultDomains = []string{"example.com", "mywebsite.com"}

// Result summarizes a seeding run.
type Result struct {
	Websites int
	Events   int
	Failed   int
}

func (r *Result) add(other Result) {
	r.Websites += other.Websites
	r.Events += other.Events
	r.Failed += other.Failed
}

// Seeder generates journey-shaped sessions for registered websites.
type Seeder struct {
	registry   *websites.Registry
	collector  *events.Collector
	locator    events.Locator
	logger     *slog.Logger
	eventCount int
	days       int
	rng        *rand.Rand
	now        func() time.Time
}

type Option func(*Seeder)

// WithSeed makes the generated traffic reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Seeder) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithDays spreads sessions over the last n days. Defaults to 30.
func WithDays(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.days = n
		}
	}
}

// WithLocator enables geo enrichment of the synthetic IPs.
func WithLocator(locator events.Locator) Option {
	return func(s *Seeder) { s.locator = locator }
}

// NewSeeder targets roughly eventCount pageviews per website.
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, eventCount int, opts ...Option) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Seeder{
		registry:   websites.NewRegistry(dbManager.GetConnection()),
		logger:     logger,
		eventCount: eventCount,
		days:       30,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.collector = events.NewCollector(
		events.NewGormStore(dbManager, logger),
		s.registry,
		events.NewEnricher(nil, s.locator),
		logger,
	)
	return s
}

// Run registers each domain if needed and seeds it.
func (s *Seeder) Run(ctx context.Context, domains ...string) (Result, error) {
	if len(domains) == 0 {
		domains = DefaultDomains
	}

	start := time.Now()
	s.logger.Info("Starting database seeding...", slog.Int("eventCount", s.eventCount), slog.Any("domains", domains))

	var total Result
	for _, domain := range domains {
		website, err := s.ensureWebsite(ctx, domain)
		if err != nil {
			return total, err
		}
		res, err := s.generate(ctx, website)
		total.add(res)
		if err != nil {
			return total, fmt.Errorf("failed to generate data for %s: %w", website.Domain, err)
		}
	}

	s.logger.Info("Seeding completed successfully",
		slog.Int("websites", total.Websites),
		slog.Int("events", total.Events),
		slog.Duration("elapsed", time.Since(start)))
	return total, nil
}

// SeedDomain seeds an already registered domain.
func (s *Seeder) SeedDomain(ctx context.Context, domain string) (Result, error) {
	website, err := s.registry.GetByDomain(ctx, domain)
	if err != nil {
		return Result{}, fmt.Errorf("website with domain %s not found: %w", domain, err)
	}
	return s.generate(ctx, website)
}

func (s *Seeder) ensureWebsite(ctx context.Context, domain string) (*websites.Website, error) {
	website, err := s.registry.GetByDomain(ctx, domain)
	if err == nil {
		s.logger.Info("Website already exists", slog.String("domain", website.Domain))
		return website, nil
	}

	var notFound *websites.WebsiteNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	website, err = s.registry.Create(ctx, domain)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Website created", slog.String("id", website.ID), slog.String("domain", website.Domain))
	return website, nil
}

var journeyTemplates = [][]string{
	{"/", "/about", "/contact"},
	{"/", "/features", "/pricing", "/signup"},
	{"/", "/blog", "/blog/article-1", "/signup"},
	{"/pricing", "/features", "/signup"},
	{"/", "/products", "/products/widget-a", "/products/gadget-b", "/pricing"},
	{"/", "/docs", "/docs/getting-started", "/docs/api-reference"},
	{"/", "/blog", "/blog/article-1", "/blog/article-2"},
	{"/", "/signup"},
	{"/"},
	{"/blog/article-1"},
	{"/login", "/dashboard", "/settings"},
}

type goal struct {
	name string
	data map[string]any
}

var goals = []goal{
	{name: "newsletter_signup", data: map[string]any{"source": "footer"}},
	{name: "demo_requested", data: map[string]any{"plan": "enterprise"}},
	{name: "download_started", data: map[string]any{"filename": "whitepaper.pdf"}},
	{name: string(events.EventTypeSignup), data: map[string]any{"plan": "free"}},
	{name: string(events.EventTypeInitiateCheckout)},
	{name: string(events.EventTypePayment), data: map[string]any{"amount": 2999, "currency": "USD"}},
}

var outboundLinks = []events.LinkPayload{
	{URL: "https://github.com/acme/widget", Text: "GitHub"},
	{URL: "https://twitter.com/acme", Text: "Twitter"},
	{URL: "https://docs.partner.io/integrations", Text: "Partner docs"},
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
	"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
	"Mozilla/5.0 (iPad; CPU OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
}

var referrers = []string{
	"",
	"",
	"https://www.google.com/search?q=widgets",
	"https://bing.com/",
	"https://duckduckgo.com/",
	"https://news.ycombinator.com/item?id=1",
	"https://www.reddit.com/r/golang/",
	"https://github.com/acme",
	"android-app://com.google.android.gm",
}

// generate creates sessions until the pageview target is reached.
func (s *Seeder) generate(ctx context.Context, website *websites.Website) (Result, error) {
	res := Result{Websites: 1}
	ipPool := s.ipPool(50)
	visitors := make([]string, max(s.eventCount/8, 3))
	for i := range visitors {
		visitors[i] = uuid.NewString()
	}

	window := time.Duration(s.days) * 24 * time.Hour
	pageviews := 0
	for pageviews < s.eventCount {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		journey := journeyTemplates[s.rng.IntN(len(journeyTemplates))]
		visitor := visitors[s.rng.IntN(len(visitors))]
		session := "s" + uuid.NewString()
		rc := events.RequestContext{
			UserAgent: userAgents[s.rng.IntN(len(userAgents))],
			IP:        ipPool[s.rng.IntN(len(ipPool))],
		}
		referrer := referrers[s.rng.IntN(len(referrers))]
		at := s.now().Add(-time.Duration(s.rng.Int64N(int64(window))))

		emit := func(t events.EventType, path string, extra map[string]any) {
			raw := &events.RawEvent{
				WebsiteID: website.ID,
				Domain:    website.Domain,
				Href:      "https://" + website.Domain + path,
				Referrer:  referrer,
				Timestamp: at.UTC().Format(time.RFC3339Nano),
				VisitorID: visitor,
				SessionID: session,
				Type:      string(t),
				ExtraData: extra,
			}
			if _, err := s.collector.Collect(ctx, raw, rc); err != nil {
				s.logger.Error("Failed to collect event during seeding", slog.Any("error", err))
				res.Failed++
				return
			}
			res.Events++
		}

		for i, path := range journey {
			if i > 0 {
				at = at.Add(time.Duration(s.rng.IntN(110)+10) * time.Second)
				referrer = "https://" + website.Domain + journey[i-1]
			} else {
				path = s.withCampaign(path)
			}
			emit(events.EventTypePageView, path, nil)
			pageviews++
		}
		last := journey[len(journey)-1]

		if s.rng.Float64() < 0.25 {
			link := outboundLinks[s.rng.IntN(len(outboundLinks))]
			at = at.Add(5 * time.Second)
			emit(events.EventTypeExternalLink, last, map[string]any{events.ExtraURL: link.URL, events.ExtraText: link.Text})
		}
		if s.rng.Float64() < 0.15 {
			at = at.Add(3 * time.Second)
			emit(events.EventTypeInternalLink, last, map[string]any{events.ExtraURL: "https://" + website.Domain + "/pricing#plans", events.ExtraText: "See plans"})
		}
		if s.rng.Float64() < 0.2 {
			g := goals[s.rng.IntN(len(goals))]
			at = at.Add(30 * time.Second)
			t, extra := goalEvent(g)
			emit(t, last, extra)
		}
	}

	s.logger.Info("Generated journey-based events for website",
		slog.String("domain", website.Domain),
		slog.Int("events", res.Events),
		slog.Int("failed", res.Failed))
	return res, nil
}

func goalEvent(g goal) (events.EventType, map[string]any) {
	extra := make(map[string]any, len(g.data)+1)
	for k, v := range g.data {
		extra[k] = v
	}
	t := events.EventType(g.name)
	if !t.Valid() || t.IsLink() || t == events.EventTypePageView {
		extra[events.ExtraEventName] = g.name
		return events.EventTypeCustom, extra
	}
	return t, extra
}

func (s *Seeder) ipPool(count int) []string {
	seen := make(map[string]bool, count)
	ips := make([]string, 0, count)
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", s.rng.IntN(223)+1, s.rng.IntN(256), s.rng.IntN(256), s.rng.IntN(254)+1)
		if !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

// withCampaign tags some landing pages with UTM parameters.
func (s *Seeder) withCampaign(path string) string {
	if s.rng.IntN(10) < 8 {
		return path
	}
	params := url.Values{}
	sources := []string{"google", "newsletter", "twitter", "linkedin"}
	mediums := []string{"cpc", "social", "email", "referral"}
	campaigns := []string{"spring_sale", "product_launch", "q4_promo"}
	params.Set("utm_source", sources[s.rng.IntN(len(sources))])
	params.Set("utm_medium", mediums[s.rng.IntN(len(mediums))])
	params.Set("utm_campaign", campaigns[s.rng.IntN(len(campaigns))])
	return path + "?" + params.Encode()
}
