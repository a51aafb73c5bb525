package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/service"
)

// SignatureHeader carries the gateway's payload signature.
const SignatureHeader = "X-Gateway-Signature"

// WebhookHandler receives payment gateway webhook deliveries.
type WebhookHandler struct {
	decoder      *service.WebhookDecoder
	synchronizer *service.PaymentSynchronizer
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(decoder *service.WebhookDecoder, synchronizer *service.PaymentSynchronizer) *WebhookHandler {
	return &WebhookHandler{decoder: decoder, synchronizer: synchronizer}
}

// HandlePaymentEvent handles POST /v1/webhooks/payment. A 200 response
// acknowledges the delivery; the gateway retries anything else.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable request body"})
		return
	}

	event, err := h.decoder.VerifyAndDecode(payload, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrSignatureInvalid) {
			respondError(c, err)
		} else {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return
	}

	if err := h.synchronizer.Apply(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"received": true})
}
