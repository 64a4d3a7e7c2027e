package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/events"
)

func withExtra(e events.Event, extra events.Extra) events.Event {
	e.Extra = extra
	return e
}

func TestReferrerBreakdown(t *testing.T) {
	a := pageview("v1", "s1", base)
	a.Referrer = "https://www.google.com/search?q=analytics"
	b := pageview("v2", "s2", base)
	b.Referrer = "https://google.com/"
	c := pageview("v3", "s3", base)
	c.Referrer = "https://blog.example.org/post"
	d := pageview("v4", "s4", base)

	results := ReferrerBreakdown([]events.Event{a, b, c, d})
	require.Len(t, results, 2)
	assert.Equal(t, MetricCountResult{Name: "google.com", Label: "Google", Count: 2}, results[0])
	assert.Equal(t, "blog.example.org", results[1].Name)
	assert.Equal(t, int64(1), results[1].Count)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		href     string
		expected string
	}{
		{"", "/"},
		{"https://example.com", "/"},
		{"https://example.com/", "/"},
		{"https://example.com/pricing/", "/pricing"},
		{"https://example.com/docs/index.html", "/docs"},
		{"https://example.com/index", "/"},
		{"https://example.com/blog?page=2#top", "/blog"},
		{"/about", "/about"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePath(tt.href))
		})
	}
}

func TestPageBreakdownSortsByCountThenName(t *testing.T) {
	mk := func(href string) events.Event {
		e := pageview("v", "s", base)
		e.Href = href
		return e
	}
	evts := []events.Event{
		mk("https://example.com/b"),
		mk("https://example.com/a"),
		mk("https://example.com/pricing/"),
		mk("https://example.com/pricing"),
		mk(""),
	}

	results := PageBreakdown(evts)
	require.Len(t, results, 3)
	assert.Equal(t, "/pricing", results[0].Name)
	assert.Equal(t, int64(2), results[0].Count)
	assert.Equal(t, "/a", results[1].Name)
	assert.Equal(t, "/b", results[2].Name)
}

func TestLinkBreakdowns(t *testing.T) {
	evts := []events.Event{
		withExtra(event(events.EventTypeExternalLink, "v1", "s1", base),
			events.Extra{events.ExtraURL: "https://github.com/acme/repo", events.ExtraText: "Source"}),
		withExtra(event(events.EventTypeExternalLink, "v2", "s2", base),
			events.Extra{events.ExtraURL: "https://GitHub.com/other"}),
		withExtra(event(events.EventTypeInternalLink, "v1", "s1", base),
			events.Extra{events.ExtraURL: "https://example.com/pricing#plans", events.ExtraText: "Pricing"}),
		withExtra(event(events.EventTypePageView, "v1", "s1", base),
			events.Extra{events.ExtraURL: "https://ignored.example"}),
	}

	external := ExternalLinkBreakdown(evts)
	require.Len(t, external, 1)
	assert.Equal(t, "github.com", external[0].Name)
	assert.Equal(t, int64(2), external[0].Count)

	internal := InternalLinkBreakdown(evts)
	require.Len(t, internal, 1)
	assert.Equal(t, "/pricing#plans", internal[0].Name)
}

func TestEnrichmentBreakdownsUseUnknownBucket(t *testing.T) {
	evts := []events.Event{
		withExtra(pageview("v1", "s1", base), events.Extra{
			events.ExtraCountry: "DE", events.ExtraOS: "macOS", events.ExtraBrowser: "Safari", events.ExtraDevice: "desktop",
		}),
		withExtra(pageview("v2", "s2", base), events.Extra{
			events.ExtraCountry: "DE", events.ExtraOS: "Windows", events.ExtraBrowser: "Chrome", events.ExtraDevice: "mobile",
		}),
		pageview("v3", "s3", base),
	}

	countries := CountryBreakdown(evts)
	require.Len(t, countries, 2)
	assert.Equal(t, MetricCountResult{Name: "DE", Label: "Germany", Count: 2}, countries[0])
	assert.Equal(t, MetricCountResult{Name: events.Unknown, Label: events.Unknown, Count: 1}, countries[1])

	oses := OSBreakdown(evts)
	require.Len(t, oses, 3)
	assert.Equal(t, []string{"Unknown", "Windows", "macOS"}, names(oses))

	browsers := BrowserBreakdown(evts)
	assert.Equal(t, []string{"Chrome", "Safari", "Unknown"}, names(browsers))

	devices := DeviceBreakdown(evts)
	require.Len(t, devices, 3)
	assert.Equal(t, events.Unknown, devices[0].Label)
	assert.Equal(t, "Desktop", devices[1].Label)
	assert.Equal(t, "Mobile", devices[2].Label)
}

func TestCustomEventBreakdown(t *testing.T) {
	evts := []events.Event{
		withExtra(event(events.EventTypeCustom, "v1", "s1", base), events.Extra{events.ExtraEventName: "newsletter"}),
		withExtra(event(events.EventTypeCustom, "v2", "s2", base), events.Extra{events.ExtraEventName: "newsletter"}),
		event(events.EventTypeSignup, "v3", "s3", base),
		event(events.EventTypeCustom, "v4", "s4", base),
		pageview("v5", "s5", base),
	}

	results := CustomEventBreakdown(evts)
	assert.Equal(t, []MetricCountResult{
		{Name: "newsletter", Count: 2},
		{Name: "Unknown", Count: 1},
		{Name: "signup", Count: 1},
	}, results)
}

func TestTop(t *testing.T) {
	rows := []MetricCountResult{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	assert.Len(t, Top(rows, 2), 2)
	assert.Len(t, Top(rows, 0), 3)
	assert.Len(t, Top(rows, 10), 3)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "France", CountryLabel("FR"))
	assert.Equal(t, events.Unknown, CountryLabel(""))
	assert.Equal(t, "ZZ", CountryLabel("ZZ"))
	assert.Equal(t, "Tablet", TitleLabel("tablet"))
	assert.Equal(t, events.Unknown, TitleLabel(""))
}

func names(rows []MetricCountResult) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
