package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/events"
)

func validRaw() *events.RawEvent {
	return &events.RawEvent{
		WebsiteID: "site-1",
		Domain:    "example.com",
		Href:      "https://example.com/pricing",
		Referrer:  "https://www.google.com/search",
		Timestamp: "2024-05-01T10:00:00.000Z",
		VisitorID: "5f1c2a8e-7b1e-4c39-9a0e-2b1f3c4d5e6f",
		SessionID: "s8d2b9a4e-1f6c-4a7d-b3e2-9c8f7a6b5d4c",
		Type:      "pageview",
	}
}

func TestValidateAcceptsWellFormedEvent(t *testing.T) {
	event, err := events.Validate(validRaw())
	require.NoError(t, err)

	assert.Equal(t, "site-1", event.WebsiteID)
	assert.Equal(t, events.EventTypePageView, event.EventType)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), event.OccurredAt)
	assert.NotNil(t, event.Extra)
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		field string
		clear func(r *events.RawEvent)
	}{
		{"missing website id", "websiteId", func(r *events.RawEvent) { r.WebsiteID = "" }},
		{"missing visitor id", "visitorId", func(r *events.RawEvent) { r.VisitorID = "" }},
		{"missing session id", "sessionId", func(r *events.RawEvent) { r.SessionID = "  " }},
		{"missing type", "type", func(r *events.RawEvent) { r.Type = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.clear(raw)

			_, err := events.Validate(raw)
			var validationErr *events.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, events.CodeMissingField, validationErr.Code)
		})
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	raw := validRaw()
	raw.Type = "scroll"

	_, err := events.Validate(raw)
	var validationErr *events.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, events.CodeInvalidEventType, validationErr.Code)
}

func TestValidateRejectsLoopbackHref(t *testing.T) {
	for _, href := range []string{"http://localhost:3000/", "http://127.0.0.1/a", "file:///tmp/index.html"} {
		raw := validRaw()
		raw.Href = href

		_, err := events.Validate(raw)
		var validationErr *events.ValidationError
		require.ErrorAs(t, err, &validationErr, href)
		assert.Equal(t, events.CodeLoopbackOrigin, validationErr.Code)
	}
}

func TestValidateLeavesBadTimestampZero(t *testing.T) {
	raw := validRaw()
	raw.Timestamp = "yesterday"

	event, err := events.Validate(raw)
	require.NoError(t, err)
	assert.True(t, event.OccurredAt.IsZero())
}

func TestValidateCopiesExtraData(t *testing.T) {
	raw := validRaw()
	raw.Type = "external_link"
	raw.ExtraData = map[string]any{"url": "https://github.com/acme", "text": "GitHub"}

	event, err := events.Validate(raw)
	require.NoError(t, err)

	raw.ExtraData["url"] = "mutated"
	link, ok := event.Link()
	require.True(t, ok)
	assert.Equal(t, "https://github.com/acme", link.URL)
	assert.Equal(t, "GitHub", link.Text)
}

func TestCustomPayload(t *testing.T) {
	named := events.Event{EventType: events.EventTypeSignup, Extra: events.Extra{"plan": "pro", "browser": "Chrome"}}
	payload, ok := named.Custom()
	require.True(t, ok)
	assert.Equal(t, "signup", payload.Name)
	assert.Equal(t, map[string]any{"plan": "pro"}, payload.Data)

	custom := events.Event{EventType: events.EventTypeCustom, Extra: events.Extra{"eventName": "newsletter"}}
	payload, ok = custom.Custom()
	require.True(t, ok)
	assert.Equal(t, "newsletter", payload.Name)

	pageview := events.Event{EventType: events.EventTypePageView}
	_, ok = pageview.Custom()
	assert.False(t, ok)
	_, ok = pageview.Link()
	assert.False(t, ok)
}
