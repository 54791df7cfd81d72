package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/audit"
)

type EventsHandler struct {
	auditLogger *audit.Logger
	events      audit.EventRepository
}

func NewEventsHandler(auditLogger *audit.Logger, events audit.EventRepository) *EventsHandler {
	return &EventsHandler{auditLogger: auditLogger, events: events}
}

// GetEvents returns the most recent persisted events, optionally filtered
// by source IP.
func (h *EventsHandler) GetEvents(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if ip := ctx.Query("ip"); ip != "" {
		records, err := h.events.EventsByIP(ctx.Context(), ip, limit)
		if err != nil {
			return err
		}
		return ctx.JSON(NewDataResponse(records))
	}
	records, err := h.events.RecentEvents(ctx.Context(), limit)
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(records))
}

// PostFlush forces the audit buffer out to the sinks.
func (h *EventsHandler) PostFlush(ctx *fiber.Ctx) error {
	h.auditLogger.Flush()
	return ctx.JSON(NewDataResponse(fiber.Map{"flushed": true}))
}

// GetStats reports the logger's buffering state: events evicted from the
// flush buffer and live-feed deliveries missed by slow subscribers.
func (h *EventsHandler) GetStats(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(fiber.Map{
		"dropped":     h.auditLogger.Dropped(),
		"feedDropped": h.auditLogger.Events().Dropped(),
	}))
}
