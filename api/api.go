// Package api exposes the chat pipeline over HTTP with fiber.
package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/meikuraledutech/flowagent"
	"github.com/meikuraledutech/flowagent/metrics"
	"github.com/meikuraledutech/flowagent/pipeline"
)

// Response messages.
const (
	MessageNotFound = "Conversation not found"
	MessageCleared  = "Conversation history cleared"
	MessageInternal = "Internal server error"
)

// Service is the chat pipeline as seen by the handlers.
type Service interface {
	Chat(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
	History(ctx context.Context, sessionID string) ([]flowagent.SessionEntry, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// New builds the fiber app. m may be nil, in which case /metrics is not served
// and requests are not counted.
func New(svc Service, m *metrics.Collector, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{AppName: "flowagent"})
	app.Use(requestid.New())
	app.Use(accessLog(logger, m))
	app.Use(recoverer.New())

	h := &handlers{svc: svc, logger: logger}

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	app.Post("/api/chat", h.chat)
	app.Get("/api/chat/history/:sessionId", h.history)
	app.Delete("/api/chat/history/:sessionId", h.clear)

	return app
}

type handlers struct {
	svc    Service
	logger *slog.Logger
}

func (h *handlers) chat(c fiber.Ctx) error {
	var req pipeline.Request
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	resp, err := h.svc.Chat(c.Context(), req)
	if errors.Is(err, flowagent.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": pipeline.ValidationMessage})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": userMessage(err)})
	}
	return c.JSON(resp)
}

func (h *handlers) history(c fiber.Ctx) error {
	id := c.Params("sessionId")
	entries, err := h.svc.History(c.Context(), id)
	if errors.Is(err, flowagent.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": MessageNotFound})
	}
	if err != nil {
		h.logger.Error("get history", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": MessageInternal})
	}
	return c.JSON(fiber.Map{"sessionId": id, "history": entries})
}

func (h *handlers) clear(c fiber.Ctx) error {
	id := c.Params("sessionId")
	err := h.svc.ClearHistory(c.Context(), id)
	if errors.Is(err, flowagent.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": MessageNotFound})
	}
	if err != nil {
		h.logger.Error("clear history", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": MessageInternal})
	}
	return c.JSON(fiber.Map{"sessionId": id, "message": MessageCleared})
}

// userMessage returns the caller-safe text of err.
func userMessage(err error) string {
	var fe *flowagent.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return MessageInternal
}
