package handler

import (
	"net/http"

	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc *service.NotificationService
	log *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log.Named("notification_handler")}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := page(c)
	limit, offset = service.ClampPage(limit, offset)
	list, err := h.svc.List(middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(id, middleware.GetUserID(c)); err != nil {
		respondError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
