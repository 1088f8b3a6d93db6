package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BotHealthChecker reports the codebot's health payload.
type BotHealthChecker interface {
	Health(ctx context.Context) (map[string]any, error)
}

type HealthHandler struct {
	bot BotHealthChecker
	log *zap.Logger
}

func NewHealthHandler(bot BotHealthChecker, log *zap.Logger) *HealthHandler {
	return &HealthHandler{bot: bot, log: log}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

// BotHealth proxies the codebot health check.
func (h *HealthHandler) BotHealth(c *fiber.Ctx) error {
	if h.bot == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unconfigured"})
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	payload, err := h.bot.Health(ctx)
	if err != nil {
		h.log.Warn("bot health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "bot": payload})
}
