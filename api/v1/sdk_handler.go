package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

//go:embed script.js
var scriptSource string

var scriptTemplate = template.Must(template.New("script.js").Delims("[[", "]]").Parse(scriptSource))

// RenderScript renders the browser tracker for a collector reachable at baseURL.
func RenderScript(baseURL string) ([]byte, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, map[string]string{"BaseURL": baseURL}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetScriptAction serves GET /js/script.js.
func GetScriptAction(ctx *cartridge.Context) error {
	content, err := RenderScript(ctx.BaseURL())
	if err != nil {
		ctx.Logger.Error("Failed to render tracking script", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	etag := generateETag(content)
	if ctx.Get(fiber.HeaderIfNoneMatch) == etag {
		return ctx.Status(fiber.StatusNotModified).Send(nil)
	}

	ctx.Set(fiber.HeaderContentType, "application/javascript")
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	ctx.Set(fiber.HeaderETag, etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return ctx.Send(content)
}
