package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/config"
	"sitepulse/internal/events"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/websites"
)

const (
	errInvalidRequest   = "Invalid request"
	codeInvalidPayload  = "INVALID_PAYLOAD"
	codeStorage         = "STORAGE_UNAVAILABLE"
	codeCollectionError = "COLLECTION_ERROR"

	// retryAfterSeconds is advertised to clients when storage is unavailable.
	retryAfterSeconds = 5
)

func appConfig(ctx *cartridge.Context) *config.Config {
	if cfg, ok := ctx.Config.(*config.Config); ok {
		return cfg
	}
	return config.GetConfig()
}

func newCollector(ctx *cartridge.Context) *events.Collector {
	cfg := appConfig(ctx)
	store := events.NewGormStore(ctx.DBManager, ctx.Logger)
	registry := websites.NewRegistry(ctx.DB())
	enricher := events.NewEnricher(nil, geoip.Shared(cfg.GeoDBPath, ctx.Logger))
	return events.NewCollector(store, registry, enricher, ctx.Logger,
		events.WithClockSkew(cfg.ClockSkew()))
}

// CreateEventHandler handles POST /api/events. The body is read as JSON whatever
// the Content-Type, so text/plain beacons work too.
func CreateEventHandler(ctx *cartridge.Context) error {
	var raw events.RawEvent
	if err := json.Unmarshal(ctx.Body(), &raw); err != nil {
		ctx.Logger.Debug("Failed to parse event payload", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  codeInvalidPayload,
		})
	}

	rc := events.RequestContext{
		UserAgent: userAgent(ctx.Ctx),
		IP:        getClientIP(ctx.Ctx),
	}

	if _, err := newCollector(ctx).Collect(ctx.UserContext(), &raw, rc); err != nil {
		return collectErrorResponse(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func collectErrorResponse(ctx *cartridge.Context, err error) error {
	var validationErr *events.ValidationError
	if errors.As(err, &validationErr) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Error(),
			"code":  validationErr.Code,
		})
	}

	var websiteNotFoundErr *websites.WebsiteNotFoundError
	if errors.As(err, &websiteNotFoundErr) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Website not found - please register your domain first",
			"code":  events.CodeWebsiteNotFound,
		})
	}

	var storageErr *events.StorageError
	if errors.As(err, &storageErr) {
		ctx.Logger.Error("Event storage unavailable", slog.Any("error", err))
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		return ctx.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Event storage temporarily unavailable",
			"code":  codeStorage,
		})
	}

	ctx.Logger.Error("Failed to collect event", slog.Any("error", err))
	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to collect event",
		"code":  codeCollectionError,
	})
}

// PreflightHandler answers CORS preflight requests.
func PreflightHandler(ctx *cartridge.Context) error {
	return ctx.SendStatus(fiber.StatusNoContent)
}
