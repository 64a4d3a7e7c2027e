package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"sitepulse/internal/config"
)

const auditFileName = "spctl-audit.log"

// newAuditLogger records destructive operator actions as JSON lines in a
// rotated file under the configured logs directory.
func newAuditLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	dir := cfg.GetLogDirectory()
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil)), nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, auditFileName),
		MaxSize:    cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAge:     cfg.GetLogMaxAgeDays(),
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(rotator, nil)).With(slog.String("tool", "spctl")), rotator
}

func operator() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
