// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

const defaultPrivateKey = "88888888888888888888888888888888"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`
	Domain      string   `mapstructure:"domain"`

	// AdminAPIKeyHash is the bcrypt hash of the operator API key guarding /admin/api.
	AdminAPIKeyHash string `mapstructure:"adminapikeyhash"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Analytics settings
	SessionTimeoutSeconds int `mapstructure:"sessiontimeoutseconds"`
	VisitorRetentionDays  int `mapstructure:"visitorretentiondays"`
	LiveWindowSeconds     int `mapstructure:"livewindowseconds"`
	ClockSkewSeconds      int `mapstructure:"clockskewseconds"`

	// Install verification
	InstallCheckTimeoutSeconds int    `mapstructure:"installchecktimeoutseconds"`
	InstallCheckCacheSeconds   int    `mapstructure:"installcheckcacheseconds"`
	NotifyWebhookURL           string `mapstructure:"notifywebhookurl"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// EventRetentionDays deletes events older than this many days; 0 keeps everything.
	EventRetentionDays int `mapstructure:"eventretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	})
	return cfg
}

// Load reads configuration from defaults and the environment without caching it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "sitepulse")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("privatekey", defaultPrivateKey)
	v.SetDefault("storagepath", "storage")
	v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
	v.SetDefault("publicdir", "web")
	v.SetDefault("publicassetsurlprefix", "/")
	v.SetDefault("logsdir", "logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("dbtype", SQLiteDatabase)
	v.SetDefault("dbmaxopenconns", 0)
	v.SetDefault("dbmaxidleconns", 0)
	v.SetDefault("sessiontimeoutseconds", 1800)
	v.SetDefault("visitorretentiondays", 365)
	v.SetDefault("livewindowseconds", 300)
	v.SetDefault("clockskewseconds", 300)
	v.SetDefault("installchecktimeoutseconds", 10)
	v.SetDefault("installcheckcacheseconds", 300)
	v.SetDefault("jobintervalseconds", 3600)
	v.SetDefault("eventretentiondays", 0)

	v.BindEnv("appname", "SITEPULSE_APP_NAME")
	v.BindEnv("appport", "SITEPULSE_APP_PORT")
	v.BindEnv("environment", "SITEPULSE_ENV")
	v.BindEnv("loglevel", "SITEPULSE_LOG_LEVEL")
	v.BindEnv("privatekey", "SITEPULSE_PRIVATE_KEY")
	v.BindEnv("domain", "SITEPULSE_DOMAIN")
	v.BindEnv("adminapikeyhash", "SITEPULSE_ADMIN_API_KEY_HASH")
	v.BindEnv("storagepath", "SITEPULSE_STORAGE_PATH")
	v.BindEnv("geodbpath", "SITEPULSE_GEO_DB_PATH")
	v.BindEnv("publicdir", "SITEPULSE_PUBLIC_DIR")
	v.BindEnv("publicassetsurlprefix", "SITEPULSE_PUBLIC_ASSETS_URL_PREFIX")
	v.BindEnv("logsdir", "SITEPULSE_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "SITEPULSE_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "SITEPULSE_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "SITEPULSE_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("dbtype", "SITEPULSE_DB_TYPE")
	v.BindEnv("dbmaxopenconns", "SITEPULSE_DB_MAX_OPEN_CONNS")
	v.BindEnv("dbmaxidleconns", "SITEPULSE_DB_MAX_IDLE_CONNS")
	v.BindEnv("sessiontimeoutseconds", "SITEPULSE_SESSION_TIMEOUT_SECONDS")
	v.BindEnv("visitorretentiondays", "SITEPULSE_VISITOR_RETENTION_DAYS")
	v.BindEnv("livewindowseconds", "SITEPULSE_LIVE_WINDOW_SECONDS")
	v.BindEnv("clockskewseconds", "SITEPULSE_CLOCK_SKEW_SECONDS")
	v.BindEnv("installchecktimeoutseconds", "SITEPULSE_INSTALL_CHECK_TIMEOUT_SECONDS")
	v.BindEnv("installcheckcacheseconds", "SITEPULSE_INSTALL_CHECK_CACHE_SECONDS")
	v.BindEnv("notifywebhookurl", "SITEPULSE_NOTIFY_WEBHOOK_URL")
	v.BindEnv("jobintervalseconds", "SITEPULSE_JOB_INTERVAL_SECONDS")
	v.BindEnv("eventretentiondays", "SITEPULSE_EVENT_RETENTION_DAYS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.DatabaseName = c.GetDatabasePath()
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if c.IsProduction() && c.PrivateKey == defaultPrivateKey {
		return fmt.Errorf("production requires a unique SITEPULSE_PRIVATE_KEY (cannot use default)")
	}

	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session timeout must be positive, got %d", c.SessionTimeoutSeconds)
	}
	if c.LiveWindowSeconds <= 0 {
		return fmt.Errorf("live window must be positive, got %d", c.LiveWindowSeconds)
	}
	if c.EventRetentionDays < 0 {
		return fmt.Errorf("event retention days cannot be negative, got %d", c.EventRetentionDays)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// SessionTimeout is the inactivity window after which a client mints a new session id.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// VisitorRetention is how long a client keeps its visitor id.
func (c *Config) VisitorRetention() time.Duration {
	return time.Duration(c.VisitorRetentionDays) * 24 * time.Hour
}

// LiveWindow is the trailing window used for the live visitor count.
func (c *Config) LiveWindow() time.Duration {
	return time.Duration(c.LiveWindowSeconds) * time.Second
}

// ClockSkew is how far in the future a client timestamp may be before the server overrides it.
func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

// InstallCheckTimeout bounds each probe made while verifying a snippet installation.
func (c *Config) InstallCheckTimeout() time.Duration {
	return time.Duration(c.InstallCheckTimeoutSeconds) * time.Second
}

// InstallCheckCacheTTL is how long verification results are reused.
func (c *Config) InstallCheckCacheTTL() time.Duration {
	return time.Duration(c.InstallCheckCacheSeconds) * time.Second
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 10 (concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
