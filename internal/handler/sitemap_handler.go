package handler

import (
	"net/http"

	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SitemapHandler struct {
	svc *service.SitemapService
	log *zap.Logger
}

func NewSitemapHandler(svc *service.SitemapService, log *zap.Logger) *SitemapHandler {
	return &SitemapHandler{svc: svc, log: log.Named("sitemap")}
}

func (h *SitemapHandler) Get(c *gin.Context) {
	out, err := h.svc.Render()
	if err != nil {
		h.log.Error("sitemap render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sitemap unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}
