package handler

import (
	"errors"
	"net/http"

	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartHandler struct {
	svc *service.CartService
	log *zap.Logger
}

func NewCartHandler(svc *service.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log.Named("cart_handler")}
}

type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

func (h *CartHandler) Create(c *gin.Context) {
	cart, err := h.svc.Create(middleware.GetUserID(c))
	if err != nil {
		h.cartError(c, err, "create failed")
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.svc.Get(middleware.GetUserID(c))
	if err != nil {
		h.cartError(c, err, "lookup failed")
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(middleware.GetUserID(c)); err != nil {
		h.cartError(c, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req CartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.svc.AddItem(middleware.GetUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.cartError(c, err, "update failed")
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req CartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.svc.SetItem(middleware.GetUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.cartError(c, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}
	if _, err := h.svc.RemoveItem(middleware.GetUserID(c), productID); err != nil {
		h.cartError(c, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) cartError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrCartExists),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProduct):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		respondError(c, h.log, err, msg)
	}
}
