package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/events"
	"sitepulse/internal/pkg/geoip"
)

type fakeLocator map[string]geoip.Location

func (f fakeLocator) Lookup(ip string) (geoip.Location, bool) {
	loc, ok := f[ip]
	return loc, ok
}

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func TestEnrich(t *testing.T) {
	enricher := events.NewEnricher(nil, fakeLocator{
		"8.8.8.8": {Country: "US", Region: "California", City: "Mountain View"},
	})

	got := enricher.Enrich(events.RequestContext{UserAgent: chromeOnWindows, IP: "8.8.8.8"})
	assert.Equal(t, events.Enrichment{
		Browser: "Chrome",
		OS:      "Windows",
		Device:  "desktop",
		Country: "US",
		Region:  "California",
		City:    "Mountain View",
	}, got)
}

func TestEnrichDegradesToUnknown(t *testing.T) {
	enricher := events.NewEnricher(nil, fakeLocator{})

	got := enricher.Enrich(events.RequestContext{})
	assert.Equal(t, events.Unknown, got.Browser)
	assert.Equal(t, events.Unknown, got.OS)
	assert.Equal(t, events.Unknown, got.Device)
	assert.Equal(t, events.Unknown, got.Country)
	assert.Equal(t, events.Unknown, got.City)

	noGeo := events.NewEnricher(nil, nil)
	assert.Equal(t, events.Unknown, noGeo.Enrich(events.RequestContext{IP: "8.8.8.8"}).Country)
}

func TestMergeKeepsCallerKeys(t *testing.T) {
	extra := events.Extra{"country": "hand-set", "city": "", "plan": "pro"}
	merged := extra.Merge(events.Enrichment{Browser: "Firefox", OS: "Linux", Device: "desktop", Country: "DE", Region: "Berlin", City: "Berlin"})

	assert.Equal(t, "hand-set", merged["country"])
	assert.Equal(t, "", merged["city"])
	assert.Equal(t, "pro", merged["plan"])
	assert.Equal(t, "Firefox", merged["browser"])
	assert.Equal(t, "Berlin", merged["region"])

	_, mutated := extra["browser"]
	assert.False(t, mutated)
}

func TestNormalizeOperatingSystem(t *testing.T) {
	tests := map[string]string{
		"":          events.Unknown,
		"Unknown":   events.Unknown,
		"Mac":       "macOS",
		"iOS":       "iOS",
		"iPadOS":    "iPadOS",
		"GNU/Linux": "Linux",
		"Ubuntu":    "Linux",
		"Windows":   "Windows",
		"Android":   "Android",
		"Chrome OS": "Chrome OS",
		"freeBSD":   "FreeBSD",
	}
	for in, want := range tests {
		assert.Equal(t, want, events.NormalizeOperatingSystem(in), in)
	}
}
