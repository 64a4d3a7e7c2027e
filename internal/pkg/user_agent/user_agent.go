package user_agent

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Device classes reported in UserAgent.Device
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceTV      = "tv"
	DeviceConsole = "console"
	DeviceBot     = "bot"
)

// Unknown is returned for any field the parser could not determine.
const Unknown = "Unknown"

type UserAgent struct {
	UserAgent string
	OS        string
	Browser   string
	Device    string
	Brand     string
	Model     string
	Mobile    bool
	Tablet    bool
	Desktop   bool
	Bot       bool
}

//go:embed database/regexes.yml
var defaultDatabase []byte

type clientEntry struct {
	Regex   string `yaml:"regex"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type deviceEntry struct {
	Regex  string `yaml:"regex"`
	Device string `yaml:"device"`
	Brand  string `yaml:"brand"`
	Model  string `yaml:"model"`
}

type database struct {
	Bots     []clientEntry `yaml:"bots"`
	Browsers []clientEntry `yaml:"browsers"`
	OSs      []clientEntry `yaml:"oss"`
	Devices  []deviceEntry `yaml:"devices"`
}

// Compiled regex cache
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// Parser classifies user-agent strings using an ordered regex database.
type Parser struct {
	db    database
	cache *regexCache
}

// NewParser builds a parser from a YAML regex database.
func NewParser(data []byte) (*Parser, error) {
	var db database
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse user agent database: %w", err)
	}
	return &Parser{db: db, cache: newRegexCache()}, nil
}

var (
	defaultParser *Parser
	once          sync.Once
)

// Default returns the parser backed by the embedded database.
func Default() *Parser {
	once.Do(func() {
		p, err := NewParser(defaultDatabase)
		if err != nil {
			slog.Default().Error("Failed to load embedded user agent database", slog.Any("error", err))
			p = &Parser{cache: newRegexCache()}
		}
		defaultParser = p
	})
	return defaultParser
}

// ParseUserAgent parses userAgent with the default parser.
func ParseUserAgent(userAgent string) UserAgent {
	return Default().Parse(userAgent)
}

func (p *Parser) match(pattern, userAgent string) []string {
	regex, err := p.cache.get(pattern)
	if err != nil {
		return nil
	}
	return regex.FindStringSubmatch(userAgent)
}

// expand replaces $1, $2, etc. with the matched groups.
func expand(template string, matches []string) string {
	if template == "" || len(matches) < 2 {
		return strings.NewReplacer("$1", "", "$2", "").Replace(template)
	}
	out := template
	for i, m := range matches[1:] {
		out = strings.ReplaceAll(out, fmt.Sprintf("$%d", i+1), m)
	}
	return out
}

func (p *Parser) firstClient(entries []clientEntry, userAgent string) (string, string, bool) {
	for _, entry := range entries {
		if matches := p.match(entry.Regex, userAgent); len(matches) > 0 {
			return entry.Name, expand(entry.Version, matches), true
		}
	}
	return Unknown, "", false
}

func (p *Parser) parseDevice(userAgent string) (deviceEntry, bool) {
	for _, entry := range p.db.Devices {
		if matches := p.match(entry.Regex, userAgent); len(matches) > 0 {
			entry.Model = expand(entry.Model, matches)
			return entry, true
		}
	}
	return deviceEntry{}, false
}

// Parse classifies userAgent. An empty string yields Unknown for every field.
func (p *Parser) Parse(userAgent string) UserAgent {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return UserAgent{OS: Unknown, Browser: Unknown, Device: Unknown}
	}

	if name, _, ok := p.firstClient(p.db.Bots, userAgent); ok {
		return UserAgent{
			UserAgent: userAgent,
			OS:        Unknown,
			Browser:   name,
			Device:    DeviceBot,
			Bot:       true,
		}
	}

	browser, _, _ := p.firstClient(p.db.Browsers, userAgent)
	os, _, _ := p.firstClient(p.db.OSs, userAgent)

	result := UserAgent{
		UserAgent: userAgent,
		OS:        os,
		Browser:   browser,
	}

	device, ok := p.parseDevice(userAgent)
	if !ok {
		result.Device = DeviceDesktop
		result.Desktop = true
		return result
	}

	result.Brand = device.Brand
	result.Model = device.Model
	switch device.Device {
	case "smartphone", "feature phone", "phablet", "portable media player":
		result.Device = DeviceMobile
		result.Mobile = true
	case "tablet":
		result.Device = DeviceTablet
		result.Tablet = true
	case "tv":
		result.Device = DeviceTV
	case "console":
		result.Device = DeviceConsole
	default:
		result.Device = DeviceDesktop
		result.Desktop = true
	}
	return result
}
