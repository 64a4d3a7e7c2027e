// Package testsupport provides database and server fixtures for sitepulse tests.
package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sitepulse/internal"
	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/events"
	"sitepulse/internal/websites"
)

// AdminAPIKey is the bearer key accepted by apps built with CreateMinimalTestApp.
const AdminAPIKey = "test-admin-key"

// testDBCache caches test databases by root test name so that subtests and
// helpers share one database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a named in-memory database with every model migrated.
// cache=shared lets the pool's connections see the same data.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		CloseDB(db)
	})

	return db
}

// CloseDB closes the pool under db. Later queries fail, which tests use to
// simulate an unavailable store.
func CloseDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// SetupTestDBManager creates a DB manager over a fresh test database.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()
	config.GetConfig().Environment = config.Test

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// CreateTestWebsite registers domain, reusing an existing row.
func CreateTestWebsite(t *testing.T, db *gorm.DB, domain string) websites.Website {
	t.Helper()
	var website websites.Website
	if db.Where("domain = ?", domain).First(&website).Error == nil {
		return website
	}
	website = websites.Website{ID: uuid.NewString(), Domain: domain, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&website).Error)
	return website
}

// CreateEvent stores a ready-made event for websiteID.
func CreateEvent(t *testing.T, db *gorm.DB, websiteID string, eventType events.EventType, visitorID, sessionID, href string, at time.Time) events.Event {
	t.Helper()
	event := events.Event{
		WebsiteID:  websiteID,
		VisitorID:  visitorID,
		SessionID:  sessionID,
		EventType:  eventType,
		Href:       href,
		Extra:      events.Extra{},
		OccurredAt: at.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// GetLogger returns a logger that discards everything below error.
func GetLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// CreateMinimalTestApp builds the full route table over db. Admin routes
// accept AdminAPIKey.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test
	appConfig.AdminAPIKeyHash = string(hash)
	appConfig.GeoDBPath = ""

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	cfg.EnableSecFetchSite = false

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// AuthHeader is the Authorization value for AdminAPIKey.
func AuthHeader() string {
	return "Bearer " + AdminAPIKey
}
