package handler

import (
	"errors"
	"net/http"

	"smartdecor/internal/domain"
	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type MpesaHandler struct {
	payments *service.PaymentService
	orders   *service.OrderService
	log      *zap.Logger
}

func NewMpesaHandler(payments *service.PaymentService, orders *service.OrderService, log *zap.Logger) *MpesaHandler {
	return &MpesaHandler{payments: payments, orders: orders, log: log.Named("mpesa_handler")}
}

type STKPushRequest struct {
	Phone   string          `json:"phone" binding:"required,msisdn"`
	Amount  decimal.Decimal `json:"amount"`
	OrderID uint            `json:"order_id" binding:"required"`
}

// Initiate sends an STK push to the payer's phone and records the pending payment.
func (h *MpesaHandler) Initiate(c *gin.Context) {
	var req STKPushRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.Initiate(c.Request.Context(), req.Phone, req.Amount, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPhone),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrInvalidOrder):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate STK Push"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "STK Push initiated",
		"merchant_request_id": p.MerchantRequestID,
		"checkout_request_id": p.CheckoutRequestID,
	})
}

// GetByCheckoutID returns one payment for polling; customers only see payments of their own orders.
func (h *MpesaHandler) GetByCheckoutID(c *gin.Context) {
	p, err := h.payments.GetByCheckoutRequestID(c.Param("checkout_request_id"))
	if err != nil {
		respondError(c, h.log, err, "lookup failed")
		return
	}
	role := middleware.GetRole(c)
	if role != domain.RoleAdmin {
		if _, err := h.orders.Get(middleware.GetUserID(c), role, p.OrderID); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				err = service.ErrForbidden
			}
			respondError(c, h.log, err, "lookup failed")
			return
		}
	}
	c.JSON(http.StatusOK, p)
}

// ListByOrder returns every payment attempt recorded for the order.
func (h *MpesaHandler) ListByOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.orders.Get(middleware.GetUserID(c), middleware.GetRole(c), id); err != nil {
		respondError(c, h.log, err, "lookup failed")
		return
	}
	list, err := h.payments.ListByOrder(id)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, list)
}
