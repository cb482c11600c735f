package handler

import (
	"errors"
	"io"
	"net/http"

	"smartdecor/internal/service"
	"smartdecor/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxCallbackBody = 64 << 10

type MpesaWebhookHandler struct {
	payments *service.PaymentService
	log      *zap.Logger
}

func NewMpesaWebhookHandler(payments *service.PaymentService, log *zap.Logger) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{payments: payments, log: log.Named("mpesa_callback")}
}

// Handle acknowledges every well-formed callback with 200 so the provider stops retrying.
// Only an unreadable body (400) or a failed database write (500) is reported otherwise.
func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody))
	if err != nil {
		h.log.Warn("callback body unreadable", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	res, err := h.payments.HandleCallback(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, payment.ErrMalformedPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		return
	}
	resp := gin.H{"message": res.Message}
	if res.Outcome == service.CallbackCompleted && res.Payment.MpesaReceiptNumber != nil {
		resp["receipt"] = *res.Payment.MpesaReceiptNumber
	}
	c.JSON(http.StatusOK, resp)
}
