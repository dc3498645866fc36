package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateSink accepts updates for asynchronous processing.
type UpdateSink interface {
	Enqueue(update models.TelegramUpdate) bool
}

type WebhookAdmin interface {
	Configured() bool
	SetWebhook(ctx context.Context, webhookURL, secret string) error
	GetWebhookInfo(ctx context.Context) (*models.TelegramWebhookInfo, error)
}

type TelegramHandler struct {
	sink          UpdateSink
	admin         WebhookAdmin
	webhookSecret string
	publicBaseURL string
	logger        *zap.Logger
}

func NewTelegramHandler(
	sink UpdateSink,
	admin WebhookAdmin,
	webhookSecret string,
	publicBaseURL string,
	logger *zap.Logger,
) *TelegramHandler {
	return &TelegramHandler{
		sink:          sink,
		admin:         admin,
		webhookSecret: webhookSecret,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// HandleWebhook acknowledges every authenticated update with 200 so Telegram
// does not redeliver turns whose effects were already committed.
func (h *TelegramHandler) HandleWebhook(c *fiber.Ctx) error {
	if h.webhookSecret != "" && c.Get(webhookSecretHeader) != h.webhookSecret {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Invalid webhook secret",
		})
	}

	var update models.TelegramUpdate
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		h.logger.Warn("Ignoring malformed Telegram update", zap.Error(err))
		return c.JSON(fiber.Map{"ok": true})
	}

	if !h.sink.Enqueue(update) {
		h.logger.Warn("Telegram update was not accepted", zap.Int64("update_id", update.UpdateID))
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *TelegramHandler) HandleSetupWebhook(c *fiber.Ctx) error {
	if !h.admin.Configured() {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Telegram bot token is not configured",
		})
	}
	if h.publicBaseURL == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "PUBLIC_BASE_URL is not configured",
		})
	}

	webhookURL := h.publicBaseURL + "/api/v1/telegram/webhook"
	if err := h.admin.SetWebhook(c.UserContext(), webhookURL, h.webhookSecret); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to set webhook: %v", err),
		})
	}

	h.logger.Info("✅ Telegram webhook configured", zap.String("url", webhookURL))
	return c.JSON(fiber.Map{
		"message":     "Telegram webhook configured",
		"webhook_url": webhookURL,
	})
}

func (h *TelegramHandler) HandleWebhookInfo(c *fiber.Ctx) error {
	if !h.admin.Configured() {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Telegram bot token is not configured",
		})
	}

	info, err := h.admin.GetWebhookInfo(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to fetch webhook info: %v", err),
		})
	}

	return c.JSON(info)
}
