package events

import (
	"time"
)

// EventType identifies what a tracked interaction was.
type EventType string

const (
	EventTypePageView         EventType = "pageview"
	EventTypeExternalLink     EventType = "external_link"
	EventTypeInternalLink     EventType = "internal_link"
	EventTypeCustom           EventType = "custom"
	EventTypeInitiateCheckout EventType = "initiate_checkout"
	EventTypeSignup           EventType = "signup"
	EventTypePayment          EventType = "payment"
)

var knownEventTypes = map[EventType]bool{
	EventTypePageView:         true,
	EventTypeExternalLink:     true,
	EventTypeInternalLink:     true,
	EventTypeCustom:           true,
	EventTypeInitiateCheckout: true,
	EventTypeSignup:           true,
	EventTypePayment:          true,
}

// Valid reports whether t is one of the supported event types.
func (t EventType) Valid() bool {
	return knownEventTypes[t]
}

// IsLink reports whether t is an outbound or inbound link click.
func (t EventType) IsLink() bool {
	return t == EventTypeExternalLink || t == EventTypeInternalLink
}

// IsCustom reports whether t is a generic custom event or one of the named conversions.
func (t EventType) IsCustom() bool {
	switch t {
	case EventTypeCustom, EventTypeInitiateCheckout, EventTypeSignup, EventTypePayment:
		return true
	}
	return false
}

// Keys used inside Event.Extra
const (
	ExtraURL       = "url"
	ExtraText      = "text"
	ExtraEventName = "eventName"
	ExtraBrowser   = "browser"
	ExtraOS        = "os"
	ExtraDevice    = "device"
	ExtraCountry   = "country"
	ExtraRegion    = "region"
	ExtraCity      = "city"
)

// Unknown is the label used when enrichment data is missing.
const Unknown = "Unknown"

// Extra holds the type-specific payload of an event plus its enrichment fields.
type Extra map[string]any

// String returns the value stored under key when it is a non-empty string.
func (x Extra) String(key string) string {
	if x == nil {
		return ""
	}
	if s, ok := x[key].(string); ok {
		return s
	}
	return ""
}

// Event represents a single tracked interaction. Events are append-only.
type Event struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	WebsiteID  string    `gorm:"index:idx_website_occurred;size:36;not null" json:"websiteId"`
	VisitorID  string    `gorm:"index;size:64;not null" json:"visitorId"`
	SessionID  string    `gorm:"index;size:64;not null" json:"sessionId"`
	EventType  EventType `gorm:"index;size:32;not null" json:"type"`
	Href       string    `json:"href"`
	Referrer   string    `json:"referrer"`
	Extra      Extra     `gorm:"serializer:json;type:text" json:"extraData"`
	OccurredAt time.Time `gorm:"index:idx_website_occurred;not null" json:"timestamp"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LinkPayload is the payload of external_link and internal_link events.
type LinkPayload struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Link returns the link payload when e is a link click.
func (e *Event) Link() (LinkPayload, bool) {
	if !e.EventType.IsLink() {
		return LinkPayload{}, false
	}
	return LinkPayload{
		URL:  e.Extra.String(ExtraURL),
		Text: e.Extra.String(ExtraText),
	}, true
}

// CustomPayload is the payload of custom events and named conversions.
type CustomPayload struct {
	Name string         `json:"eventName"`
	Data map[string]any `json:"data"`
}

// Custom returns the custom payload when e is a custom event. Named conversions
// report their type as the name unless the caller supplied one.
func (e *Event) Custom() (CustomPayload, bool) {
	if !e.EventType.IsCustom() {
		return CustomPayload{}, false
	}

	name := e.Extra.String(ExtraEventName)
	if name == "" && e.EventType != EventTypeCustom {
		name = string(e.EventType)
	}

	data := make(map[string]any)
	for k, v := range e.Extra {
		if k == ExtraEventName || enrichmentKeys[k] {
			continue
		}
		data[k] = v
	}

	return CustomPayload{Name: name, Data: data}, true
}

// Enrichment returns the server-derived fields stored on e, with Unknown for gaps.
func (e *Event) Enrichment() Enrichment {
	get := func(key string) string {
		if v := e.Extra.String(key); v != "" {
			return v
		}
		return Unknown
	}
	return Enrichment{
		Browser: get(ExtraBrowser),
		OS:      get(ExtraOS),
		Device:  get(ExtraDevice),
		Country: get(ExtraCountry),
		Region:  get(ExtraRegion),
		City:    get(ExtraCity),
	}
}
