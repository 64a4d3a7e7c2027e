package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "sitepulse/api/v1"
	"sitepulse/internal/config"
	"sitepulse/internal/http"
	"sitepulse/internal/http/middleware"
	"sitepulse/internal/notify"
	"sitepulse/internal/verify"
)

// publicCORSConfig is shared by every endpoint the tracker calls from a visitor's browser.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// MountAppRoutes mounts the public collection endpoints and the admin API.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	// Rate limiting only applies in production; in development and tests it
	// would interfere with bursts of synthetic traffic.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70 requests per minute per IP.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Install checks fetch third party pages, keep them scarce.
	checkRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Ingestion accepts server-to-server senders such as the Go tracker, so
	// Sec-Fetch-Site is not enforced here.
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		WriteConcurrency:   false,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	scriptConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	apiKey := middleware.APIKeyAuth(cfg.AdminAPIKeyHash, logger)

	adminAPIConfig := &cartridge.RouteConfig{
		CustomMiddleware:   []fiber.Handler{apiKey},
		EnableSecFetchSite: cartridge.Bool(false),
	}

	adminWriteConfig := &cartridge.RouteConfig{
		CustomMiddleware:   []fiber.Handler{apiKey},
		WriteConcurrency:   true,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	checkConfig := &cartridge.RouteConfig{
		CustomMiddleware:   []fiber.Handler{apiKey, checkRateLimiter},
		EnableSecFetchSite: cartridge.Bool(false),
	}

	healthConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction, healthConfig)
	srv.Head("/_health", http.HealthIndexAction, healthConfig)

	// === PUBLIC COLLECTION ===
	srv.Post("/api/events", v1.CreateEventHandler, publicAPIConfig)
	srv.Options("/api/events", v1.PreflightHandler, publicAPIConfig)
	srv.Get("/js/script.js", v1.GetScriptAction, scriptConfig)

	// === ADMIN API ===
	checker := verify.NewChecker(
		cfg.InstallCheckTimeout(),
		cfg.InstallCheckCacheTTL(),
		notify.FromURL(cfg.NotifyWebhookURL, logger),
		logger,
	)

	srv.Get("/admin/api/websites", http.WebsitesIndexAction, adminAPIConfig)
	srv.Post("/admin/api/websites", http.WebsiteCreateAction, adminWriteConfig)
	srv.Get("/admin/api/websites/:id/stats", http.WebsiteStatsAction, adminAPIConfig)
	srv.Get("/admin/api/websites/:id/events", http.EventsIndexAction, adminAPIConfig)
	srv.Delete("/admin/api/websites/:id/events/:eventId", http.EventDeleteAction, adminWriteConfig)
	srv.Post("/admin/api/check-install", v1.NewCheckInstallHandler(checker), checkConfig)
}
