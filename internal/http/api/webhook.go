package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/billing"
)

// maxWebhookBytes bounds the Stripe webhook payload size.
const maxWebhookBytes = int64(65536)

// WebhookHandler receives Stripe webhook deliveries.
type WebhookHandler struct {
	billing *billing.Service
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(bill *billing.Service) *WebhookHandler {
	return &WebhookHandler{billing: bill}
}

// Stripe verifies the event signature and applies the event.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	body, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, errVerify := h.billing.VerifyWebhook(body, c.GetHeader("Stripe-Signature"))
	if errVerify != nil {
		log.WithError(errVerify).Warn("stripe webhook verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	if errHandle := h.billing.HandleEvent(c.Request.Context(), event); errHandle != nil {
		log.WithError(errHandle).WithField("type", event.Type).Error("stripe event handling failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
