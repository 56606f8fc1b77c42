package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	"github.com/socialstax/backend/internal/interfaces/http/dto"
)

// StripeWebhookHandler receives Stripe webhook events
type StripeWebhookHandler struct {
	BaseHandler
	webhookService *appbilling.StripeWebhookService
}

// NewStripeWebhookHandler creates a new Stripe webhook handler
func NewStripeWebhookHandler(webhookService *appbilling.StripeWebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{webhookService: webhookService}
}

// Handle verifies and processes a Stripe event. Stripe expects a 2xx on
// success and retries anything else, so unverifiable payloads get a 400
// to stop retries of garbage while transient failures return 500.
// POST /api/v1/webhooks/stripe
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Failed to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Missing Stripe-Signature header")
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Webhook verification failed")
		return
	}

	h.Success(c, result)
}
