package analytics

import (
	"context"
	"fmt"
	"time"

	"sitepulse/internal/events"
	"sitepulse/internal/pkg/async"
	"sitepulse/internal/timeframe"
)

// Totals are the headline numbers of a period.
type Totals struct {
	Visitors    int     `json:"visitors"`
	Pageviews   int     `json:"pageviews"`
	Sessions    int     `json:"sessions"`
	BounceRate  float64 `json:"bounceRate"`
	SessionTime float64 `json:"sessionTime"`
}

// ComputeTotals derives Totals from one event snapshot.
func ComputeTotals(evts []events.Event) Totals {
	sessions := Sessionize(evts)
	return Totals{
		Visitors:    UniqueVisitors(evts),
		Pageviews:   TotalPageviews(evts),
		Sessions:    len(sessions),
		BounceRate:  round2(BounceRate(sessions)),
		SessionTime: round2(AverageSessionDuration(sessions)),
	}
}

// Summary is the dashboard payload for one website and time frame.
type Summary struct {
	WebsiteID    string                        `json:"websiteId"`
	From         time.Time                     `json:"from"`
	To           time.Time                     `json:"to"`
	BucketSize   timeframe.TimeFrameBucketSize `json:"bucketSize"`
	Totals       Totals                        `json:"totals"`
	LiveVisitors int                           `json:"liveVisitors"`
	Comparison   *ComparisonMetrics            `json:"comparison,omitempty"`

	Timeline      []timeframe.DateStat `json:"timeline"`
	Referrers     []MetricCountResult  `json:"referrers"`
	Pages         []MetricCountResult  `json:"pages"`
	ExternalLinks []MetricCountResult  `json:"externalLinks"`
	InternalLinks []MetricCountResult  `json:"internalLinks"`
	Countries     []MetricCountResult  `json:"countries"`
	OSes          []MetricCountResult  `json:"operatingSystems"`
	Browsers      []MetricCountResult  `json:"browsers"`
	Devices       []MetricCountResult  `json:"devices"`
	CustomEvents  []MetricCountResult  `json:"customEvents"`
}

// EventSource is the read side of events.Store.
type EventSource interface {
	EventsForSite(ctx context.Context, q events.EventQuery) ([]events.Event, error)
}

// Service fetches event snapshots and summarizes them.
type Service struct {
	source     EventSource
	pool       *async.Pool
	liveWindow time.Duration
	topN       int
	now        func() time.Time
}

type ServiceOption func(*Service)

func WithLiveWindow(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.liveWindow = d
		}
	}
}

// WithTopN caps every breakdown at n rows.
func WithTopN(n int) ServiceOption {
	return func(s *Service) { s.topN = n }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(source EventSource, opts ...ServiceOption) *Service {
	s := &Service{
		source:     source,
		pool:       async.NewPool(4),
		liveWindow: DefaultLiveWindow,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize loads the frame, the live window and optionally the previous
// frame, then computes every metric.
func (s *Service) Summarize(ctx context.Context, websiteID string, tf *timeframe.TimeFrame, compare bool) (*Summary, error) {
	now := s.now()
	tasks := []async.Task{
		{Name: "current", Execute: func() (interface{}, error) {
			return s.source.EventsForSite(ctx, events.EventQuery{WebsiteID: websiteID, From: tf.From, To: tf.To})
		}},
		{Name: "live", Execute: func() (interface{}, error) {
			return s.source.EventsForSite(ctx, events.EventQuery{WebsiteID: websiteID, From: now.Add(-s.liveWindow)})
		}},
	}
	if compare {
		prev := tf.Previous()
		tasks = append(tasks, async.Task{Name: "previous", Execute: func() (interface{}, error) {
			return s.source.EventsForSite(ctx, events.EventQuery{WebsiteID: websiteID, From: prev.From, To: prev.To})
		}})
	}

	results := s.pool.Execute(ctx, tasks)
	snapshots := make(map[string][]events.Event, len(results))
	for name, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("loading %s events: %w", name, r.Err)
		}
		snapshots[name], _ = r.Data.([]events.Event)
	}

	summary := Summarize(ctx, s.pool, snapshots["current"], tf)
	summary.WebsiteID = websiteID
	summary.LiveVisitors = LiveVisitors(snapshots["live"], now, s.liveWindow)
	if compare {
		summary.Comparison = Compare(summary.Totals, ComputeTotals(snapshots["previous"]))
	}
	if s.topN > 0 {
		summary.truncate(s.topN)
	}
	return summary, nil
}

// Summarize computes every metric of evts on pool, each as an independent task.
// A metric that fails or is cancelled is left empty.
func Summarize(ctx context.Context, pool *async.Pool, evts []events.Event, tf *timeframe.TimeFrame) *Summary {
	breakdowns := map[string]func([]events.Event) []MetricCountResult{
		"referrers":      ReferrerBreakdown,
		"pages":          PageBreakdown,
		"external_links": ExternalLinkBreakdown,
		"internal_links": InternalLinkBreakdown,
		"countries":      CountryBreakdown,
		"oses":           OSBreakdown,
		"browsers":       BrowserBreakdown,
		"devices":        DeviceBreakdown,
		"custom_events":  CustomEventBreakdown,
	}

	tasks := []async.Task{
		{Name: "totals", Execute: func() (interface{}, error) { return ComputeTotals(evts), nil }},
		{Name: "timeline", Execute: func() (interface{}, error) {
			return Timeline(evts, tf, events.EventTypePageView), nil
		}},
	}
	for name, fn := range breakdowns {
		tasks = append(tasks, async.Task{Name: name, Execute: func() (interface{}, error) { return fn(evts), nil }})
	}

	results := pool.Execute(ctx, tasks)
	rows := func(name string) []MetricCountResult {
		v, _ := results[name].Data.([]MetricCountResult)
		if v == nil {
			return []MetricCountResult{}
		}
		return v
	}

	summary := &Summary{
		From:          tf.From,
		To:            tf.To,
		BucketSize:    tf.BucketSize,
		Referrers:     rows("referrers"),
		Pages:         rows("pages"),
		ExternalLinks: rows("external_links"),
		InternalLinks: rows("internal_links"),
		Countries:     rows("countries"),
		OSes:          rows("oses"),
		Browsers:      rows("browsers"),
		Devices:       rows("devices"),
		CustomEvents:  rows("custom_events"),
	}
	summary.Totals, _ = results["totals"].Data.(Totals)
	summary.Timeline, _ = results["timeline"].Data.([]timeframe.DateStat)
	if summary.Timeline == nil {
		summary.Timeline = []timeframe.DateStat{}
	}
	return summary
}

func (s *Summary) truncate(n int) {
	s.Referrers = Top(s.Referrers, n)
	s.Pages = Top(s.Pages, n)
	s.ExternalLinks = Top(s.ExternalLinks, n)
	s.InternalLinks = Top(s.InternalLinks, n)
	s.Countries = Top(s.Countries, n)
	s.OSes = Top(s.OSes, n)
	s.Browsers = Top(s.Browsers, n)
	s.Devices = Top(s.Devices, n)
	s.CustomEvents = Top(s.CustomEvents, n)
}
