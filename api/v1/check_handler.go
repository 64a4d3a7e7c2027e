package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/verify"
)

// CheckInstallParams is the body of POST /admin/api/check-install.
type CheckInstallParams struct {
	Domain        string `json:"domain"`
	ScriptToCheck string `json:"scriptToCheck"`
}

// NewCheckInstallHandler verifies that a site serves its tracking snippet.
func NewCheckInstallHandler(checker *verify.Checker) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var params CheckInstallParams
		if err := ctx.BodyParser(&params); err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": errInvalidRequest,
				"code":  codeInvalidPayload,
			})
		}

		result, err := checker.Check(ctx.UserContext(), params.Domain, params.ScriptToCheck)
		if errors.Is(err, verify.ErrMissingInput) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Domain and script are required",
				"code":  "MISSING_FIELD",
			})
		}
		if err != nil {
			ctx.Logger.Error("Install check failed", slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error occurred during the request",
			})
		}

		if !result.Found {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Script not found in any URL combination",
			})
		}
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"message": "Script found",
			"url":     result.URL,
			"cached":  result.Cached,
		})
	}
}
