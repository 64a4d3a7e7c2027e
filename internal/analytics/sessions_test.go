package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/events"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func event(typ events.EventType, visitor, session string, at time.Time) events.Event {
	return events.Event{
		WebsiteID:  "site-1",
		VisitorID:  visitor,
		SessionID:  session,
		EventType:  typ,
		Href:       "https://example.com/",
		OccurredAt: at,
	}
}

func pageview(visitor, session string, at time.Time) events.Event {
	return event(events.EventTypePageView, visitor, session, at)
}

func TestSessionizeGroupsBySessionID(t *testing.T) {
	evts := []events.Event{
		pageview("v1", "s1", base),
		pageview("v1", "s1", base.Add(2*time.Minute)),
		event(events.EventTypeExternalLink, "v1", "s1", base.Add(3*time.Minute)),
		pageview("v2", "s2", base.Add(time.Minute)),
	}

	sessions := Sessionize(evts)
	require.Len(t, sessions, 2)

	s1 := sessions["s1"]
	assert.Equal(t, "v1", s1.VisitorID)
	assert.Equal(t, base, s1.Start)
	assert.Equal(t, base.Add(3*time.Minute), s1.End)
	assert.Equal(t, 2, s1.PageviewCount)
	assert.Equal(t, 3, s1.EventCount)
	assert.False(t, s1.IsBounce())
	assert.Equal(t, 3*time.Minute, s1.Duration())

	s2 := sessions["s2"]
	assert.True(t, s2.IsBounce())
	assert.Zero(t, s2.Duration())
}

func TestSessionizeIsOrderIndependent(t *testing.T) {
	var evts []events.Event
	for i := 0; i < 30; i++ {
		visitor := []string{"a", "b", "c"}[i%3]
		session := []string{"s-a", "s-b", "s-c"}[i%3]
		evts = append(evts, pageview(visitor, session, base.Add(time.Duration(i)*time.Minute)))
	}

	expected := Sessionize(evts)
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		shuffled := append([]events.Event(nil), evts...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, expected, Sessionize(shuffled))
	}
}

func TestSessionizeSkipsMissingSessionID(t *testing.T) {
	sessions := Sessionize([]events.Event{
		pageview("v1", "", base),
		pageview("v1", "s1", base),
	})
	assert.Len(t, sessions, 1)
	assert.Contains(t, sessions, "s1")
}

func TestSessionizeDoesNotMutateInput(t *testing.T) {
	evts := []events.Event{pageview("v2", "s1", base.Add(time.Minute)), pageview("v1", "s1", base)}
	before := append([]events.Event(nil), evts...)

	Sessionize(evts)
	assert.Equal(t, before, evts)
}

func TestSortedSessions(t *testing.T) {
	sessions := Sessionize([]events.Event{
		pageview("v1", "late", base.Add(time.Hour)),
		pageview("v2", "b", base),
		pageview("v3", "a", base),
	})

	sorted := SortedSessions(sessions)
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
	assert.Equal(t, "late", sorted[2].ID)
}
