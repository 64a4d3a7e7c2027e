package analytics

import (
	"math"
	"time"

	"sitepulse/internal/events"
)

// DefaultLiveWindow is the trailing window used for the live visitor count.
const DefaultLiveWindow = 5 * time.Minute

// UniqueVisitors counts distinct non-empty visitor ids.
func UniqueVisitors(evts []events.Event) int {
	seen := make(map[string]struct{})
	for i := range evts {
		if id := evts[i].VisitorID; id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// TotalPageviews counts pageview events.
func TotalPageviews(evts []events.Event) int {
	n := 0
	for i := range evts {
		if evts[i].EventType == events.EventTypePageView {
			n++
		}
	}
	return n
}

// BounceRate is the percentage of sessions with exactly one pageview.
// Zero sessions yield 0.
func BounceRate(sessions map[string]Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	bounces := 0
	for _, s := range sessions {
		if s.IsBounce() {
			bounces++
		}
	}
	return float64(bounces) / float64(len(sessions)) * 100
}

// AverageSessionDuration is the mean session length in seconds, single-event
// sessions included as 0. Zero sessions yield 0.
func AverageSessionDuration(sessions map[string]Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var total float64
	for _, s := range sessions {
		total += s.Duration().Seconds()
	}
	return total / float64(len(sessions))
}

// LiveVisitors counts distinct visitors with an event at or after now-window.
// Events slightly ahead of now (accepted client skew) still count.
func LiveVisitors(evts []events.Event, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	seen := make(map[string]struct{})
	for i := range evts {
		e := &evts[i]
		if e.VisitorID == "" || e.OccurredAt.Before(cutoff) {
			continue
		}
		seen[e.VisitorID] = struct{}{}
	}
	return len(seen)
}

// round2 rounds to two decimals for presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
