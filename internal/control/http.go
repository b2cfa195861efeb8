// Package control exposes the agent over a small HTTP surface.
package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joshsymonds/inboxpilot/internal/agent"
	"github.com/joshsymonds/inboxpilot/internal/report"
)

// Agent is the slice of the agent service the handlers drive.
type Agent interface {
	Start() bool
	Stop() bool
	Status() agent.State
}

// Reporter answers /agent/report. Nil disables the endpoint.
type Reporter interface {
	Summary(ctx context.Context, days int) (report.Report, error)
}

// RateGate is the non-blocking limiter applied to the mutating endpoints.
type RateGate interface {
	Allow() bool
}

// Handler wires the control endpoints onto a fiber app.
type Handler struct {
	agent    Agent
	reporter Reporter
	gate     RateGate
	logger   *slog.Logger
}

func NewHandler(a Agent, r Reporter, gate RateGate, logger *slog.Logger) *Handler {
	return &Handler{agent: a, reporter: r, gate: gate, logger: logger}
}

func (h *Handler) Register(app *fiber.App) {
	app.Post("/agent/start", h.limited(h.startAgent))
	app.Post("/agent/stop", h.limited(h.stopAgent))
	app.Get("/agent/status", h.status)
	app.Get("/agent/report", h.report)
	app.Get("/health", h.health)
}

// limited rejects mutating calls once the token bucket is drained.
func (h *Handler) limited(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.gate != nil && !h.gate.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "error",
				"message": "rate limit exceeded",
			})
		}
		return next(c)
	}
}

func (h *Handler) startAgent(c *fiber.Ctx) error {
	if !h.agent.Start() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"message": "agent is already running",
		})
	}
	h.logger.Info("agent started", "via", "http")
	return c.JSON(fiber.Map{"status": "success", "message": "agent started"})
}

func (h *Handler) stopAgent(c *fiber.Ctx) error {
	if !h.agent.Stop() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"message": "agent is not running",
		})
	}
	h.logger.Info("agent stopping", "via", "http")
	return c.JSON(fiber.Map{"status": "success", "message": "agent stopping at next tick"})
}

func (h *Handler) status(c *fiber.Ctx) error {
	return c.JSON(h.agent.Status())
}

func (h *Handler) report(c *fiber.Ctx) error {
	if h.reporter == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "analytics store not configured",
		})
	}
	days := c.QueryInt("days", 30)
	rep, err := h.reporter.Summary(c.Context(), days)
	if err != nil {
		h.logger.Error("report failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "report generation failed",
		})
	}
	return c.JSON(rep)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
