package handlers

import (
	"net/http"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps the webhook payload size.
const maxWebhookBody = 65536

// StripeWebhook is the handler for POST /v1/webhooks/stripe.
// The raw body must reach signature verification untouched.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	// 1. --- Read the raw body ---
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	// 2. --- Verify and reconcile ---
	outcome, err := h.Reconciler.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindSignature {
			h.Logger.Warn().Err(err).Msg("webhook signature rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		// Anything else is retryable; a 5xx makes the processor redeliver.
		h.Logger.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	// 3. --- Acknowledge ---
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
