package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/events"
)

func TestBounceRate(t *testing.T) {
	tests := []struct {
		name     string
		evts     []events.Event
		expected float64
	}{
		{
			name:     "no sessions",
			evts:     nil,
			expected: 0,
		},
		{
			name: "every session bounced",
			evts: []events.Event{
				pageview("v1", "s1", base),
				pageview("v2", "s2", base),
			},
			expected: 100,
		},
		{
			name: "no session bounced",
			evts: []events.Event{
				pageview("v1", "s1", base),
				pageview("v1", "s1", base.Add(time.Minute)),
			},
			expected: 0,
		},
		{
			name: "session without pageviews is not a bounce",
			evts: []events.Event{
				event(events.EventTypeCustom, "v1", "s1", base),
				pageview("v2", "s2", base),
			},
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BounceRate(Sessionize(tt.evts)))
		})
	}
}

func TestAverageSessionDuration(t *testing.T) {
	assert.Zero(t, AverageSessionDuration(nil))

	single := Sessionize([]events.Event{pageview("v1", "s1", base), pageview("v1", "s1", base)})
	assert.Zero(t, AverageSessionDuration(single))

	mixed := Sessionize([]events.Event{
		pageview("v1", "s1", base),
		pageview("v1", "s1", base.Add(90*time.Second)),
		pageview("v2", "s2", base),
	})
	assert.Equal(t, 45.0, AverageSessionDuration(mixed))
}

func TestThreeEventScenario(t *testing.T) {
	evts := []events.Event{
		pageview("A", "sA", base),
		pageview("A", "sA", base.Add(time.Minute)),
		pageview("B", "sB", base.Add(30*time.Second)),
	}

	totals := ComputeTotals(evts)
	assert.Equal(t, 2, totals.Visitors)
	assert.Equal(t, 3, totals.Pageviews)
	assert.Equal(t, 2, totals.Sessions)
	assert.Equal(t, 50.0, totals.BounceRate)
	assert.Equal(t, 30.0, totals.SessionTime)

	sessions := Sessionize(evts)
	assert.Equal(t, 2, sessions["sA"].PageviewCount)
	assert.Equal(t, 1, sessions["sB"].PageviewCount)
}

func TestUniqueVisitorsIgnoresEmptyIDs(t *testing.T) {
	evts := []events.Event{
		pageview("v1", "s1", base),
		pageview("v1", "s2", base),
		pageview("", "s3", base),
	}
	assert.Equal(t, 1, UniqueVisitors(evts))
	assert.Equal(t, 3, TotalPageviews(evts))
}

func TestLiveVisitorsWindowBoundary(t *testing.T) {
	now := base
	evts := []events.Event{
		pageview("edge", "s1", now.Add(-DefaultLiveWindow)),
		pageview("stale", "s2", now.Add(-DefaultLiveWindow-time.Second)),
		pageview("recent", "s3", now.Add(-time.Minute)),
		pageview("recent", "s3", now.Add(-30*time.Second)),
		pageview("ahead", "s4", now.Add(10*time.Second)),
	}

	assert.Equal(t, 3, LiveVisitors(evts, now, DefaultLiveWindow))
	assert.Equal(t, 2, LiveVisitors(evts, now, time.Minute))
	assert.Zero(t, LiveVisitors(nil, now, DefaultLiveWindow))
}
