package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"sitepulse/internal"
	"sitepulse/internal/analytics"
	"sitepulse/internal/config"
	"sitepulse/internal/events"
	"sitepulse/internal/http/middleware"
	"sitepulse/internal/jobs"
	"sitepulse/internal/notify"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/seeder"
	"sitepulse/internal/timeframe"
	"sitepulse/internal/verify"
	"sitepulse/internal/websites"
)

var errNoApp = errors.New("app initialization failed, cannot connect to database")

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("Migrations completed successfully")
	return nil
}

// AddSiteCommand registers a website and prints its tracking id.
type AddSiteCommand struct{}

func (c *AddSiteCommand) Name() string        { return "add-site" }
func (c *AddSiteCommand) Description() string { return "Registers a website: add-site <domain>" }

func (c *AddSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain>", c.Name())
	}
	if app == nil {
		return errNoApp
	}

	registry := websites.NewRegistry(app.DBManager.GetConnection())
	if existing, err := registry.GetByDomain(ctx, args[0]); err == nil {
		fmt.Printf("Website %s already registered with id %s\n", existing.Domain, existing.ID)
		return nil
	}

	website, err := registry.Create(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s\nWebsite ID: %s\n", website.Domain, website.ID)
	return nil
}

// ListSitesCommand prints every registered website.
type ListSitesCommand struct{}

func (c *ListSitesCommand) Name() string        { return "list-sites" }
func (c *ListSitesCommand) Description() string { return "Lists registered websites" }

func (c *ListSitesCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}
	list, err := websites.NewRegistry(app.DBManager.GetConnection()).List(ctx)
	if err != nil {
		return err
	}
	for _, w := range list {
		fmt.Printf("%s  %s  %s\n", w.ID, w.Domain, w.CreatedAt.Format(time.DateOnly))
	}
	return nil
}

// StatsCommand prints the dashboard summary of a website as JSON.
type StatsCommand struct{}

func (c *StatsCommand) Name() string { return "stats" }
func (c *StatsCommand) Description() string {
	return "Prints a summary: stats <websiteId> [-range last_7_days] [-tz UTC] [-compare]"
}

func (c *StatsCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <websiteId> [flags]", c.Name())
	}
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	rangeLabel := fs.String("range", string(timeframe.TimeFrameRangeLabelLast7Days), "time range label")
	from := fs.String("from", "", "custom start date (YYYY-MM-DD)")
	to := fs.String("to", "", "custom end date (YYYY-MM-DD)")
	tz := fs.String("tz", "UTC", "IANA timezone")
	compare := fs.Bool("compare", false, "compare with the previous period")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if app == nil {
		return errNoApp
	}

	website, err := websites.NewRegistry(app.DBManager.GetConnection()).Get(ctx, args[0])
	if err != nil {
		return err
	}

	tf, err := timeframe.NewTimeFrameParser().ParseTimeFrame(timeframe.TimeFrameParserParams{
		Range: *rangeLabel, FromDate: *from, ToDate: *to, Tz: *tz,
	})
	if err != nil {
		return err
	}

	cfg := config.GetConfig()
	store := events.NewGormStore(app.DBManager, slog.Default())
	summary, err := analytics.NewService(store, analytics.WithLiveWindow(cfg.LiveWindow())).
		Summarize(ctx, website.ID, tf, *compare)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

// DeleteEventCommand hard-deletes one event and records it in the audit log.
type DeleteEventCommand struct{}

func (c *DeleteEventCommand) Name() string { return "delete-event" }
func (c *DeleteEventCommand) Description() string {
	return "Deletes an event: delete-event <websiteId> <eventId>"
}

func (c *DeleteEventCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <websiteId> <eventId>", c.Name())
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid event id %q", args[1])
	}
	if app == nil {
		return errNoApp
	}

	audit, closer := newAuditLogger(config.GetConfig())
	defer closer.Close()

	store := events.NewGormStore(app.DBManager, slog.Default())
	if err := store.Delete(ctx, args[0], uint(id)); err != nil {
		audit.Warn("delete-event failed",
			slog.String("operator", operator()),
			slog.String("website_id", args[0]),
			slog.Uint64("event_id", id),
			slog.Any("error", err))
		return err
	}

	audit.Info("event deleted",
		slog.String("operator", operator()),
		slog.String("website_id", args[0]),
		slog.Uint64("event_id", id))
	fmt.Printf("Deleted event %d\n", id)
	return nil
}

// PruneCommand runs the retention job once.
type PruneCommand struct{}

func (c *PruneCommand) Name() string { return "prune" }
func (c *PruneCommand) Description() string {
	return "Deletes events older than -days (defaults to SITEPULSE_EVENT_RETENTION_DAYS)"
}

func (c *PruneCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	cfg := config.GetConfig()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	days := fs.Int("days", cfg.EventRetentionDays, "retention in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days <= 0 {
		return fmt.Errorf("retention must be positive, got %d days", *days)
	}
	if app == nil {
		return errNoApp
	}

	audit, closer := newAuditLogger(cfg)
	defer closer.Close()

	job := jobs.NewCleanupJob(events.NewGormStore(app.DBManager, slog.Default()), slog.Default(),
		time.Duration(*days)*24*time.Hour, time.Hour)
	if err := job.Run(ctx); err != nil {
		return err
	}
	audit.Info("events pruned", slog.String("operator", operator()), slog.Int("retention_days", *days))
	return nil
}

// CheckInstallCommand looks for the tracking snippet on a live site.
type CheckInstallCommand struct{}

func (c *CheckInstallCommand) Name() string { return "check-install" }
func (c *CheckInstallCommand) Description() string {
	return "Checks a site serves the snippet: check-install <domain> <snippet>"
}
func (c *CheckInstallCommand) NoApp() {}

func (c *CheckInstallCommand) Execute(ctx context.Context, _ *internal.Application, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <domain> <snippet>", c.Name())
	}
	cfg := config.GetConfig()
	logger := slog.Default()
	checker := verify.NewChecker(cfg.InstallCheckTimeout(), cfg.InstallCheckCacheTTL(),
		notify.FromURL(cfg.NotifyWebhookURL, logger), logger)

	result, err := checker.Check(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !result.Found {
		return fmt.Errorf("snippet not found on %s", args[0])
	}
	fmt.Printf("Snippet found at %s\n", result.URL)
	return nil
}

// HashAPIKeyCommand prints the bcrypt hash for SITEPULSE_ADMIN_API_KEY_HASH.
type HashAPIKeyCommand struct{}

func (c *HashAPIKeyCommand) Name() string { return "hash-api-key" }
func (c *HashAPIKeyCommand) Description() string {
	return "Hashes an admin API key (prompts when no key is given)"
}
func (c *HashAPIKeyCommand) NoApp() {}

func (c *HashAPIKeyCommand) Execute(ctx context.Context, _ *internal.Application, args []string) error {
	key := ""
	if len(args) >= 1 {
		key = args[0]
	} else {
		var err error
		if key, err = promptKey(); err != nil {
			return err
		}
	}

	hash, err := hashKey(key)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

const minAPIKeyLength = 16

func hashKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) < minAPIKeyLength {
		return "", fmt.Errorf("API key must be at least %d characters", minAPIKeyLength)
	}
	return middleware.HashAPIKey(key)
}

func promptKey() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Enter admin API key: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Fprint(os.Stderr, "Confirm admin API key: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	if string(first) != string(second) {
		return "", errors.New("keys do not match")
	}
	return string(first), nil
}

// SeedCommand populates the DB with sample traffic
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with sample data" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	count := fs.Int("events", 1000, "pageviews to generate per website")
	domain := fs.String("domain", "", "existing domain to seed (seeds the defaults if empty)")
	days := fs.Int("days", 30, "spread traffic over this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if app == nil {
		return errNoApp
	}

	cfg := config.GetConfig()
	logger := slog.Default()
	se := seeder.NewSeeder(app.DBManager, logger, *count,
		seeder.WithDays(*days),
		seeder.WithLocator(geoip.Shared(cfg.GeoDBPath, logger)))

	var res seeder.Result
	var err error
	if *domain != "" {
		res, err = se.SeedDomain(ctx, *domain)
	} else {
		res, err = se.Run(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d events across %d websites (%d failed)\n", res.Events, res.Websites, res.Failed)
	return nil
}

// StatusCommand shows database connectivity and row counts
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}
	db := app.DBManager.GetConnection()

	var siteCount, eventCount int64
	if err := db.Model(&websites.Website{}).Count(&siteCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&events.Event{}).Count(&eventCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	stats := sqlDB.Stats()

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Websites: %d", siteCount)
	log.Printf("- Events: %d", eventCount)
	log.Printf("- Open Connections: %d (in use %d, idle %d)", stats.OpenConnections, stats.InUse, stats.Idle)
	return nil
}

// HelpCommand shows usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }
func (c *HelpCommand) NoApp()              {}

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage(os.Stdout)
	return nil
}
