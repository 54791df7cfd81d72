package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/monitor"
)

type MonitorHandler struct {
	monitor *monitor.Monitor
}

func NewMonitorHandler(m *monitor.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: m}
}

// GetStatus reports whether the monitor is running plus its aggregate
// counters.
func (h *MonitorHandler) GetStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(fiber.Map{
		"monitoring": h.monitor.IsMonitoring(),
		"metrics":    h.monitor.Metrics(),
	}))
}

func (h *MonitorHandler) PostStart(ctx *fiber.Ctx) error {
	h.monitor.Start()
	return ctx.JSON(NewDataResponse(fiber.Map{"monitoring": true}))
}

func (h *MonitorHandler) PostStop(ctx *fiber.Ctx) error {
	h.monitor.Stop()
	return ctx.JSON(NewDataResponse(fiber.Map{"monitoring": false}))
}

func (h *MonitorHandler) GetAlerts(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(h.monitor.ActiveAlerts()))
}

func (h *MonitorHandler) PostResolveAlert(ctx *fiber.Ctx) error {
	alertID := ctx.Params("id")
	resolvedBy := ctx.Query("resolvedBy", "admin")
	if !h.monitor.ResolveAlert(alertID, resolvedBy) {
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Alert not found"),
		)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"resolved": true}))
}

func (h *MonitorHandler) GetRules(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(h.monitor.Rules()))
}

func (h *MonitorHandler) PostRule(ctx *fiber.Ctx) error {
	var rule monitor.Rule
	if err := ctx.BodyParser(&rule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Malformed rule"),
		)
	}
	if err := h.monitor.AddRule(&rule); err != nil {
		if errors.Is(err, monitor.ErrRuleIDEmpty) || errors.Is(err, monitor.ErrRuleNoConditions) {
			return ctx.Status(fiber.StatusBadRequest).JSON(
				NewErrorResponse(fiber.StatusBadRequest, err.Error()),
			)
		}
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(rule))
}

func (h *MonitorHandler) DeleteRule(ctx *fiber.Ctx) error {
	if !h.monitor.RemoveRule(ctx.Params("id")) {
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "Rule not found"),
		)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"removed": true}))
}

func (h *MonitorHandler) GetBlockedIPs(ctx *fiber.Ctx) error {
	return ctx.JSON(NewDataResponse(h.monitor.BlockedIPs()))
}

type blockIPRequest struct {
	IP         string `json:"ip"`
	DurationMs int64  `json:"durationMs"`
}

func (h *MonitorHandler) PostBlockIP(ctx *fiber.Ctx) error {
	var req blockIPRequest
	if err := ctx.BodyParser(&req); err != nil || req.IP == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Missing ip"),
		)
	}
	h.monitor.BlockIP(req.IP, time.Duration(req.DurationMs)*time.Millisecond)
	return ctx.JSON(NewDataResponse(fiber.Map{"blocked": req.IP}))
}

func (h *MonitorHandler) DeleteBlockedIP(ctx *fiber.Ctx) error {
	ip := ctx.Params("ip")
	if !h.monitor.UnblockIP(ip) {
		return ctx.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse(fiber.StatusNotFound, "IP is not blocked"),
		)
	}
	return ctx.JSON(NewDataResponse(fiber.Map{"unblocked": ip}))
}

type rateOverrideRequest struct {
	IP         string  `json:"ip"`
	Multiplier float64 `json:"multiplier"`
}

func (h *MonitorHandler) PostRateOverride(ctx *fiber.Ctx) error {
	var req rateOverrideRequest
	if err := ctx.BodyParser(&req); err != nil || req.IP == "" || req.Multiplier <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse(fiber.StatusBadRequest, "Missing ip or multiplier"),
		)
	}
	h.monitor.SetRateLimitOverride(req.IP, req.Multiplier)
	return ctx.JSON(NewDataResponse(fiber.Map{"ip": req.IP, "multiplier": req.Multiplier}))
}

func (h *MonitorHandler) DeleteRateOverride(ctx *fiber.Ctx) error {
	h.monitor.ClearRateLimitOverride(ctx.Params("ip"))
	return ctx.JSON(NewDataResponse(fiber.Map{"cleared": ctx.Params("ip")}))
}
