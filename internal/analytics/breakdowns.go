package analytics

import (
	"net/url"
	"sort"
	"strings"

	"sitepulse/internal/events"
	"sitepulse/internal/pkg/referrers"
)

// MetricCountResult is one row of a breakdown.
type MetricCountResult struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
	Count int64  `json:"count"`
}

// keyFunc extracts the grouping key of an event; ok=false skips the event.
type keyFunc func(e *events.Event) (key string, ok bool)

// countBy groups evts by key and sorts by count descending, then name ascending.
func countBy(evts []events.Event, key keyFunc) []MetricCountResult {
	counts := make(map[string]int64)
	for i := range evts {
		if k, ok := key(&evts[i]); ok {
			counts[k]++
		}
	}

	results := make([]MetricCountResult, 0, len(counts))
	for name, count := range counts {
		results = append(results, MetricCountResult{Name: name, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Name < results[j].Name
	})
	return results
}

// Top truncates results to at most n rows; n <= 0 keeps everything.
func Top(results []MetricCountResult, n int) []MetricCountResult {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}

// ReferrerBreakdown groups events with a referrer by hostname without "www.".
func ReferrerBreakdown(evts []events.Event) []MetricCountResult {
	results := countBy(evts, func(e *events.Event) (string, bool) {
		host := referrers.Hostname(e.Referrer)
		return host, host != ""
	})
	for i := range results {
		results[i].Label = referrers.FriendlyName(results[i].Name)
	}
	return results
}

// NormalizePath maps an href to its grouping path: "" becomes "/", trailing
// slashes and a final "/index" segment are dropped.
func NormalizePath(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	p := u.Path
	if p == "" {
		return "/"
	}

	p = strings.TrimRight(p, "/")
	for _, suffix := range []string{"/index.html", "/index.htm", "/index"} {
		if strings.HasSuffix(p, suffix) {
			p = strings.TrimSuffix(p, suffix)
			break
		}
	}
	if p == "" {
		return "/"
	}
	return p
}

// PageBreakdown groups events with an href by normalized path.
func PageBreakdown(evts []events.Event) []MetricCountResult {
	return countBy(evts, func(e *events.Event) (string, bool) {
		if strings.TrimSpace(e.Href) == "" {
			return "", false
		}
		p := NormalizePath(e.Href)
		return p, p != ""
	})
}

// ExternalLinkBreakdown groups external link clicks by target hostname.
func ExternalLinkBreakdown(evts []events.Event) []MetricCountResult {
	return countBy(evts, func(e *events.Event) (string, bool) {
		if e.EventType != events.EventTypeExternalLink {
			return "", false
		}
		link, _ := e.Link()
		u, err := url.Parse(link.URL)
		if err != nil || u.Hostname() == "" {
			return "", false
		}
		return strings.ToLower(u.Hostname()), true
	})
}

// InternalLinkBreakdown groups internal link clicks by target path and fragment.
func InternalLinkBreakdown(evts []events.Event) []MetricCountResult {
	return countBy(evts, func(e *events.Event) (string, bool) {
		if e.EventType != events.EventTypeInternalLink {
			return "", false
		}
		link, _ := e.Link()
		u, err := url.Parse(link.URL)
		if err != nil || link.URL == "" {
			return "", false
		}
		key := u.Path
		if key == "" {
			key = "/"
		}
		if u.Fragment != "" {
			key += "#" + u.Fragment
		}
		return key, true
	})
}

func enrichmentBreakdown(evts []events.Event, field func(events.Enrichment) string) []MetricCountResult {
	return countBy(evts, func(e *events.Event) (string, bool) {
		return field(e.Enrichment()), true
	})
}

// CountryBreakdown groups events by enriched country code; missing values land in Unknown.
func CountryBreakdown(evts []events.Event) []MetricCountResult {
	results := enrichmentBreakdown(evts, func(en events.Enrichment) string { return en.Country })
	for i := range results {
		results[i].Label = CountryLabel(results[i].Name)
	}
	return results
}

// OSBreakdown groups events by enriched operating system.
func OSBreakdown(evts []events.Event) []MetricCountResult {
	return enrichmentBreakdown(evts, func(en events.Enrichment) string { return en.OS })
}

// BrowserBreakdown groups events by enriched browser.
func BrowserBreakdown(evts []events.Event) []MetricCountResult {
	return enrichmentBreakdown(evts, func(en events.Enrichment) string { return en.Browser })
}

// DeviceBreakdown groups events by enriched device class.
func DeviceBreakdown(evts []events.Event) []MetricCountResult {
	results := enrichmentBreakdown(evts, func(en events.Enrichment) string { return en.Device })
	for i := range results {
		results[i].Label = TitleLabel(results[i].Name)
	}
	return results
}

// CustomEventBreakdown groups custom events and named conversions by name.
func CustomEventBreakdown(evts []events.Event) []MetricCountResult {
	return countBy(evts, func(e *events.Event) (string, bool) {
		payload, ok := e.Custom()
		if !ok {
			return "", false
		}
		if payload.Name == "" {
			return events.Unknown, true
		}
		return payload.Name, true
	})
}
