package handler

import (
	"errors"
	"net/http"

	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	svc *service.OrderService
	log *zap.Logger
}

func NewOrderHandler(svc *service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log.Named("order_handler")}
}

type OrderItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" binding:"max=255"`
	CustomerEmail   string             `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone   string             `json:"customer_phone" binding:"max=32"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	Status          string             `json:"status" binding:"max=32"`
	OrderItems      []OrderItemRequest `json:"order_items" binding:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	CustomerName    *string          `json:"customer_name" binding:"omitempty,max=255"`
	CustomerEmail   *string          `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone   *string          `json:"customer_phone" binding:"omitempty,max=32"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	ShippingAddress *string          `json:"shipping_address"`
	Status          *string          `json:"status" binding:"omitempty,max=32"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.TotalAmount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_amount must not be negative"})
		return
	}
	in := service.OrderInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		TotalAmount:     req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
		Status:          req.Status,
	}
	for _, it := range req.OrderItems {
		in.Items = append(in.Items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	o, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		if errors.Is(err, service.ErrEmptyOrder) || errors.Is(err, service.ErrInvalidQuantity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, h.log, err, "create failed")
		return
	}
	c.JSON(http.StatusCreated, o)
}

// List returns all orders to admins and the caller's own orders to customers.
func (h *OrderHandler) List(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.svc.List(middleware.GetUserID(c), middleware.GetRole(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.svc.ListMine(middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Get(middleware.GetUserID(c), middleware.GetRole(c), id)
	if err != nil {
		respondError(c, h.log, err, "lookup failed")
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.svc.Update(middleware.GetUserID(c), middleware.GetRole(c), id, service.OrderUpdate{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		TotalAmount:     req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
		Status:          req.Status,
	})
	if err != nil {
		respondError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(middleware.GetUserID(c), middleware.GetRole(c), id); err != nil {
		respondError(c, h.log, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}
