package events

import (
	"fmt"
	"strings"
	"time"

	"sitepulse/internal/pkg/loopback"
)

// Validation error codes returned to clients.
const (
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidEventType = "INVALID_EVENT_TYPE"
	CodeLoopbackOrigin   = "LOOPBACK_ORIGIN"
	CodeWebsiteNotFound  = "WEBSITE_NOT_FOUND"
)

// ValidationError reports a malformed collection payload. It is never retryable.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid event: %s", e.Message)
}

// RawEvent is the collection payload exactly as the tracker sends it.
type RawEvent struct {
	WebsiteID string         `json:"websiteId"`
	Domain    string         `json:"domain"`
	Href      string         `json:"href"`
	Referrer  string         `json:"referrer"`
	Timestamp string         `json:"timestamp"`
	VisitorID string         `json:"visitorId"`
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	ExtraData map[string]any `json:"extraData"`
}

// Validate checks the required fields of raw and converts it into an Event.
// OccurredAt is left zero when the client timestamp is absent or unparseable.
func Validate(raw *RawEvent) (*Event, error) {
	if raw == nil {
		return nil, &ValidationError{Code: CodeMissingField, Message: "empty payload"}
	}

	required := []struct {
		field string
		value string
	}{
		{"websiteId", raw.WebsiteID},
		{"visitorId", raw.VisitorID},
		{"sessionId", raw.SessionID},
		{"type", raw.Type},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &ValidationError{Field: r.field, Code: CodeMissingField, Message: "is required"}
		}
	}

	eventType := EventType(raw.Type)
	if !eventType.Valid() {
		return nil, &ValidationError{Field: "type", Code: CodeInvalidEventType, Message: fmt.Sprintf("unsupported event type %q", raw.Type)}
	}

	if loopback.IsLocalHref(raw.Href) {
		return nil, &ValidationError{Field: "href", Code: CodeLoopbackOrigin, Message: "events from local origins are rejected"}
	}

	extra := make(Extra, len(raw.ExtraData))
	for k, v := range raw.ExtraData {
		extra[k] = v
	}

	return &Event{
		WebsiteID:  strings.TrimSpace(raw.WebsiteID),
		VisitorID:  raw.VisitorID,
		SessionID:  raw.SessionID,
		EventType:  eventType,
		Href:       raw.Href,
		Referrer:   raw.Referrer,
		Extra:      extra,
		OccurredAt: parseTimestamp(raw.Timestamp),
	}, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// resolveOccurredAt keeps the client timestamp unless it is missing or further
// than skew ahead of the server clock.
func resolveOccurredAt(client, now time.Time, skew time.Duration) time.Time {
	if client.IsZero() || client.After(now.Add(skew)) {
		return now
	}
	return client
}
