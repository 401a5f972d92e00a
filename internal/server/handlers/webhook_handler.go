package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	service "github.com/mamadbah2/pondwatch/internal/service/whatsapp"
)

// WebhookHandler is the farmers' WhatsApp channel: Meta calls it with their
// messages, and admins use it to write back to a farmer.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// hubChallenge is the query Meta sends once when the webhook URL is registered.
type hubChallenge struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Verify echoes the challenge when the verify token matches ours.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q hubChallenge
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	challenge, err := h.svc.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook subscription refused", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive acknowledges every parseable callback, even when a farmer's message
// could not be handled, so Meta does not redeliver it.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("unreadable webhook callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	messages, statuses := 0, 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			messages += len(change.Value.Messages)
			statuses += len(change.Value.Statuses)
		}
	}
	h.logger.Debug("webhook callback",
		zap.String("object", payload.Object),
		zap.Int("messages", messages),
		zap.Int("statuses", statuses))

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("farmer message not handled", zap.Int("messages", messages), zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage lets an administrator push a message to a farmer.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("admin message not delivered", zap.String("sent_by", sessionFrom(c).UserID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.Status(http.StatusAccepted)
}
