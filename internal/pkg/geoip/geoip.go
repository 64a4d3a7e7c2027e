package geoip

import (
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// Location is the coarse geography resolved for a client IP.
type Location struct {
	Country string // ISO 3166-1 alpha-2, upper case
	Region  string
	City    string
}

// Reader resolves IP addresses against a GeoLite2 City database.
// A nil *Reader is valid and resolves nothing.
type Reader struct {
	db     *geoip2.Reader
	logger *slog.Logger
}

// Open opens the database at path. It returns nil when the file is missing or
// unreadable, since geo enrichment is optional.
func Open(path string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		logger.Debug("GeoIP database path not configured - GeoIP features disabled")
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("GeoLite2 database not found - GeoIP features disabled",
			slog.String("path", path),
			slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		return nil
	} else if err != nil {
		logger.Warn("Error checking GeoLite2 database file",
			slog.String("path", path),
			slog.Any("error", err))
		return nil
	}

	db, err := geoip2.Open(path)
	if err != nil {
		logger.Error("Failed to open GeoLite2 database",
			slog.String("path", path),
			slog.Any("error", err))
		return nil
	}

	logger.Info("GeoLite2 database initialized successfully", slog.String("path", path))
	return &Reader{db: db, logger: logger}
}

// Lookup resolves ipAddress. ok is false when the address is unparseable,
// private, or absent from the database.
func (r *Reader) Lookup(ipAddress string) (Location, bool) {
	if r == nil || r.db == nil {
		return Location{}, false
	}

	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		r.logger.Debug("Failed to parse IP address", slog.String("ip_address", ipAddress))
		return Location{}, false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return Location{}, false
	}

	record, err := r.db.City(ip)
	if err != nil {
		r.logger.Warn("Error looking up location for IP",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return Location{}, false
	}

	loc := Location{
		Country: strings.ToUpper(record.Country.IsoCode),
		City:    record.City.Names["en"],
	}
	if loc.Country == "--" {
		loc.Country = ""
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}

	if loc.Country == "" && loc.Region == "" && loc.City == "" {
		return Location{}, false
	}
	return loc, true
}

// Close releases the underlying database.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

var (
	shared     *Reader
	sharedPath string
	once       sync.Once
	mu         sync.RWMutex
)

// Shared returns the process-wide reader for path, opening it on first use.
func Shared(path string, logger *slog.Logger) *Reader {
	once.Do(func() {
		mu.Lock()
		shared = Open(path, logger)
		sharedPath = path
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return shared
}

// Reload reopens the shared reader from disk.
// Call this after downloading a new database file.
func Reload(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if shared != nil {
		shared.Close()
	}
	shared = Open(sharedPath, logger)
}
