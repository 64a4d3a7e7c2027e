package http

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/events"
)

const (
	defaultEventsPerPage = 50
	maxEventsPerPage     = 500
)

type EventsResponse struct {
	Events []events.Event `json:"events"`
	Count  int            `json:"count"`
}

// EventsIndexAction lists the most recent raw events of a website.
// Query: limit, type (comma separated).
func EventsIndexAction(ctx *cartridge.Context) error {
	website, err := loadWebsite(ctx)
	if website == nil {
		return err
	}

	limit := ctx.QueryInt("limit", defaultEventsPerPage)
	if limit <= 0 || limit > maxEventsPerPage {
		limit = defaultEventsPerPage
	}

	q := events.EventQuery{WebsiteID: website.ID, Limit: limit, NewestFirst: true}
	for _, raw := range splitList(ctx.Query("type")) {
		t := events.EventType(raw)
		if !t.Valid() {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unsupported event type " + strconv.Quote(raw),
				"code":  events.CodeInvalidEventType,
			})
		}
		q.Types = append(q.Types, t)
	}

	list, err := eventStore(ctx).EventsForSite(ctx.UserContext(), q)
	if err != nil {
		ctx.Logger.Error("Failed to list events", slog.String("website_id", website.ID), slog.Any("error", err))
		return storageUnavailable(ctx)
	}
	if list == nil {
		list = []events.Event{}
	}

	return ctx.JSON(EventsResponse{Events: list, Count: len(list)})
}

// EventDeleteAction hard-deletes one event of a website.
func EventDeleteAction(ctx *cartridge.Context) error {
	website, err := loadWebsite(ctx)
	if website == nil {
		return err
	}

	id, err := strconv.ParseUint(ctx.Params("eventId"), 10, 64)
	if err != nil || id == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid event id",
			"code":  "INVALID_EVENT_ID",
		})
	}

	err = eventStore(ctx).Delete(ctx.UserContext(), website.ID, uint(id))
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Event not found",
			"code":  "EVENT_NOT_FOUND",
		})
	case err != nil:
		ctx.Logger.Error("Failed to delete event", slog.Uint64("id", id), slog.Any("error", err))
		return storageUnavailable(ctx)
	}

	ctx.Logger.Info("Event deleted", slog.String("website_id", website.ID), slog.Uint64("id", id))
	return ctx.JSON(fiber.Map{"success": true})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
