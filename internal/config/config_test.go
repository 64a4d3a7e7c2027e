package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SITEPULSE_ENV", Test)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sitepulse", c.AppName)
	assert.Equal(t, 30*time.Minute, c.SessionTimeout())
	assert.Equal(t, 365*24*time.Hour, c.VisitorRetention())
	assert.Equal(t, 5*time.Minute, c.LiveWindow())
	assert.Equal(t, 5*time.Minute, c.ClockSkew())
	assert.Equal(t, 0, c.EventRetentionDays)
	assert.Equal(t, "storage/sitepulse-test.db", c.DatabaseName)
	assert.Equal(t, 1, c.GetMaxOpenConns())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SITEPULSE_ENV", Test)
	t.Setenv("SITEPULSE_LIVE_WINDOW_SECONDS", "120")
	t.Setenv("SITEPULSE_EVENT_RETENTION_DAYS", "30")
	t.Setenv("SITEPULSE_DB_MAX_OPEN_CONNS", "4")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, c.LiveWindow())
	assert.Equal(t, 30, c.EventRetentionDays)
	assert.Equal(t, 4, c.GetMaxOpenConns())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown environment", map[string]string{"SITEPULSE_ENV": "staging"}},
		{"default key in production", map[string]string{"SITEPULSE_ENV": Production}},
		{"zero session timeout", map[string]string{"SITEPULSE_ENV": Test, "SITEPULSE_SESSION_TIMEOUT_SECONDS": "0"}},
		{"negative retention", map[string]string{"SITEPULSE_ENV": Test, "SITEPULSE_EVENT_RETENTION_DAYS": "-1"}},
		{"unsupported database", map[string]string{"SITEPULSE_ENV": Test, "SITEPULSE_DB_TYPE": "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetConfigIsCachedUntilReset(t *testing.T) {
	t.Setenv("SITEPULSE_ENV", Test)
	Reset()
	t.Cleanup(Reset)

	first := GetConfig()
	assert.Same(t, first, GetConfig())

	Reset()
	assert.NotSame(t, first, GetConfig())
}
