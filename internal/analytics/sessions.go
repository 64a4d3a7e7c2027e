// Package analytics derives dashboard statistics from raw event sets.
// Every function here is a pure computation over its input and never mutates it.
package analytics

import (
	"sort"
	"time"

	"sitepulse/internal/events"
)

// Session is a derived run of events sharing a session id. It is never persisted.
type Session struct {
	ID            string    `json:"id"`
	VisitorID     string    `json:"visitorId"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	PageviewCount int       `json:"pageviewCount"`
	EventCount    int       `json:"eventCount"`
}

// IsBounce reports whether the session saw exactly one pageview.
func (s Session) IsBounce() bool {
	return s.PageviewCount == 1
}

// Duration is End minus Start; zero for single-event sessions.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Sessionize groups evts by session id in a single pass. The result does not
// depend on input order. Events without a session id belong to no session.
func Sessionize(evts []events.Event) map[string]Session {
	sessions := make(map[string]Session)
	for i := range evts {
		e := &evts[i]
		if e.SessionID == "" {
			continue
		}

		s, ok := sessions[e.SessionID]
		if !ok {
			s = Session{
				ID:        e.SessionID,
				VisitorID: e.VisitorID,
				Start:     e.OccurredAt,
				End:       e.OccurredAt,
			}
		}

		if e.OccurredAt.Before(s.Start) {
			s.Start = e.OccurredAt
		}
		if e.OccurredAt.After(s.End) {
			s.End = e.OccurredAt
		}
		// Keep the visitor id deterministic if a session id was reused.
		if e.VisitorID != "" && (s.VisitorID == "" || e.VisitorID < s.VisitorID) {
			s.VisitorID = e.VisitorID
		}

		s.EventCount++
		if e.EventType == events.EventTypePageView {
			s.PageviewCount++
		}
		sessions[e.SessionID] = s
	}
	return sessions
}

// SortedSessions returns sessions ordered by start time, then id.
func SortedSessions(sessions map[string]Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
