package http

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/analytics"
	"sitepulse/internal/config"
	"sitepulse/internal/events"
	"sitepulse/internal/timeframe"
	"sitepulse/internal/websites"
)

// defaultTopN caps every breakdown in the dashboard payload.
const defaultTopN = 10

func appConfig(ctx *cartridge.Context) *config.Config {
	if cfg, ok := ctx.Config.(*config.Config); ok {
		return cfg
	}
	return config.GetConfig()
}

func eventStore(ctx *cartridge.Context) *events.GormStore {
	return events.NewGormStore(ctx.DBManager, ctx.Logger)
}

// loadWebsite resolves :id or writes the error response. A nil website means
// the response has been written.
func loadWebsite(ctx *cartridge.Context) (*websites.Website, error) {
	website, err := websites.NewRegistry(ctx.DB()).Get(ctx.UserContext(), ctx.Params("id"))
	if err == nil {
		return website, nil
	}

	var notFound *websites.WebsiteNotFoundError
	if errors.As(err, &notFound) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Website not found",
			"code":  events.CodeWebsiteNotFound,
		})
	}
	ctx.Logger.Error("Failed to load website", slog.String("id", ctx.Params("id")), slog.Any("error", err))
	return nil, storageUnavailable(ctx)
}

func storageUnavailable(ctx *cartridge.Context) error {
	ctx.Set(fiber.HeaderRetryAfter, "5")
	return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Event storage temporarily unavailable",
		"code":  "STORAGE_UNAVAILABLE",
	})
}

// WebsiteStatsAction serves the dashboard summary for one website.
// Query: range (default last_7_days), from/to (YYYY-MM-DD), tz, compare, limit.
func WebsiteStatsAction(ctx *cartridge.Context) error {
	website, err := loadWebsite(ctx)
	if website == nil {
		return err
	}

	cfg := appConfig(ctx)
	store := eventStore(ctx)

	params := timeframe.TimeFrameParserParams{
		Range:    ctx.Query("range"),
		FromDate: ctx.Query("from"),
		ToDate:   ctx.Query("to"),
		Tz:       ctx.Query("tz", "UTC"),
	}
	if params.Range == string(timeframe.TimeFrameRangeLabelAllTime) {
		first, err := store.EventsForSite(ctx.UserContext(), events.EventQuery{WebsiteID: website.ID, Limit: 1})
		if err != nil {
			return storageUnavailable(ctx)
		}
		if len(first) > 0 {
			params.AllTimeFirstEventAt = first[0].OccurredAt
		}
	}

	tf, err := timeframe.NewTimeFrameParser().ParseTimeFrame(params)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_TIME_FRAME",
		})
	}

	topN := defaultTopN
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			topN = n
		}
	}

	service := analytics.NewService(store,
		analytics.WithLiveWindow(cfg.LiveWindow()),
		analytics.WithTopN(topN))

	compare := ctx.QueryBool("compare", false)
	summary, err := service.Summarize(ctx.UserContext(), website.ID, tf, compare)
	if err != nil {
		ctx.Logger.Error("Failed to summarize website", slog.String("website_id", website.ID), slog.Any("error", err))
		return storageUnavailable(ctx)
	}

	return ctx.JSON(summary)
}
