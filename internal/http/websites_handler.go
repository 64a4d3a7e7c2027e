package http

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/websites"
)

// WebsitesIndexAction lists every registered website.
func WebsitesIndexAction(ctx *cartridge.Context) error {
	list, err := websites.NewRegistry(ctx.DB()).List(ctx.UserContext())
	if err != nil {
		ctx.Logger.Error("Failed to list websites", slog.Any("error", err))
		return storageUnavailable(ctx)
	}
	if list == nil {
		list = []websites.Website{}
	}
	return ctx.JSON(fiber.Map{"websites": list})
}

// WebsiteCreateAction registers a website from a JSON or form body with a domain field.
func WebsiteCreateAction(ctx *cartridge.Context) error {
	var body struct {
		Domain string `json:"domain" form:"domain"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "INVALID_PAYLOAD",
		})
	}

	domain := strings.TrimSpace(body.Domain)
	if domain == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "domain is required",
			"code":  "MISSING_FIELD",
		})
	}

	registry := websites.NewRegistry(ctx.DB())
	if existing, err := registry.GetByDomain(ctx.UserContext(), domain); err == nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "Website already registered",
			"website": existing,
		})
	}

	website, err := registry.Create(ctx.UserContext(), domain)
	if err != nil {
		ctx.Logger.Error("Failed to create website", slog.String("domain", domain), slog.Any("error", err))
		return storageUnavailable(ctx)
	}

	ctx.Logger.Info("Website created",
		slog.String("id", website.ID),
		slog.String("domain", website.Domain))
	return ctx.Status(fiber.StatusCreated).JSON(website)
}
