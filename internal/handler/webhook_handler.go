package handler

import (
	"net/http"
	"time"

	"mailtriage/internal/record"
	"mailtriage/internal/service"

	"github.com/labstack/echo/v4"
)

// WebhookHandler receives inbound mail from Postmark.
type WebhookHandler struct {
	emailService service.EmailService
	logger       echo.Logger
}

func NewWebhookHandler(emailService service.EmailService, logger echo.Logger) *WebhookHandler {
	return &WebhookHandler{
		emailService: emailService,
		logger:       logger,
	}
}

func (h *WebhookHandler) ReceiveInbound(c echo.Context) error {
	var msg record.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid webhook payload",
		})
	}

	result, err := h.emailService.IngestInbound(c.Request().Context(), msg)
	if err != nil {
		return serviceError(c, err, "Failed to process webhook")
	}
	if result.Duplicate {
		h.logger.Infof("Email with MessageID %s already processed", msg.MessageID)
		return c.JSON(http.StatusOK, map[string]string{
			"message": "already processed",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "email processed",
		"emailId":   result.Email.ID,
		"messageId": result.Email.MessageID,
		"labels":    result.Email.LabelIDs,
	})
}

// Health lets the provider check the endpoint is up.
func (h *WebhookHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message":   "webhook endpoint active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
