package events

import (
	"strings"

	"sitepulse/internal/pkg/geoip"
	ua "sitepulse/internal/pkg/user_agent"
)

// RequestContext carries the transport-level facts used for enrichment.
type RequestContext struct {
	UserAgent string
	IP        string
}

// Enrichment is the server-derived context attached to every stored event.
type Enrichment struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

var enrichmentKeys = map[string]bool{
	ExtraBrowser: true,
	ExtraOS:      true,
	ExtraDevice:  true,
	ExtraCountry: true,
	ExtraRegion:  true,
	ExtraCity:    true,
}

func (e Enrichment) fields() map[string]string {
	return map[string]string{
		ExtraBrowser: e.Browser,
		ExtraOS:      e.OS,
		ExtraDevice:  e.Device,
		ExtraCountry: e.Country,
		ExtraRegion:  e.Region,
		ExtraCity:    e.City,
	}
}

// Merge returns a copy of x with e's fields added. Keys already present in x,
// including empty values sent by the caller, are left untouched.
func (x Extra) Merge(e Enrichment) Extra {
	merged := make(Extra, len(x)+len(enrichmentKeys))
	for k, v := range x {
		merged[k] = v
	}
	for k, v := range e.fields() {
		if _, exists := merged[k]; exists {
			continue
		}
		merged[k] = v
	}
	return merged
}

// Locator resolves an IP address to a location.
type Locator interface {
	Lookup(ip string) (geoip.Location, bool)
}

// UserAgentParser classifies a user-agent string.
type UserAgentParser interface {
	Parse(userAgent string) ua.UserAgent
}

// Enricher derives Enrichment from a request. It never fails: lookups that
// cannot be resolved produce Unknown.
type Enricher struct {
	parser  UserAgentParser
	locator Locator
}

// NewEnricher creates an Enricher. A nil parser uses the embedded database; a
// nil locator disables geo lookups.
func NewEnricher(parser UserAgentParser, locator Locator) *Enricher {
	if parser == nil {
		parser = ua.Default()
	}
	return &Enricher{parser: parser, locator: locator}
}

// Enrich is a pure function of the request's user agent and IP.
func (en *Enricher) Enrich(rc RequestContext) Enrichment {
	parsed := en.parser.Parse(rc.UserAgent)

	result := Enrichment{
		Browser: orUnknown(parsed.Browser),
		OS:      NormalizeOperatingSystem(parsed.OS),
		Device:  orUnknown(parsed.Device),
		Country: Unknown,
		Region:  Unknown,
		City:    Unknown,
	}

	if en.locator != nil && rc.IP != "" {
		if loc, ok := en.locator.Lookup(rc.IP); ok {
			result.Country = orUnknown(loc.Country)
			result.Region = orUnknown(loc.Region)
			result.City = orUnknown(loc.City)
		}
	}

	return result
}

func orUnknown(s string) string {
	if s == "" || s == ua.Unknown {
		return Unknown
	}
	return s
}

// NormalizeOperatingSystem collapses operating system variants into stable labels
func NormalizeOperatingSystem(os string) string {
	if os == "" || os == ua.Unknown {
		return Unknown
	}

	osLower := strings.ToLower(os)

	switch {
	case osLower == "ipados":
		return "iPadOS"
	case strings.Contains(osLower, "ios") || strings.Contains(osLower, "iphone os"):
		return "iOS"
	case strings.Contains(osLower, "mac") || strings.Contains(osLower, "darwin"):
		return "macOS"
	case strings.Contains(osLower, "android"):
		return "Android"
	case strings.Contains(osLower, "windows"):
		return "Windows"
	case strings.Contains(osLower, "linux") || osLower == "ubuntu":
		return "Linux"
	}

	return strings.ToUpper(os[:1]) + os[1:]
}
