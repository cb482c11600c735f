package handler

import (
	"errors"
	"net/http"
	"strconv"

	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// page reads skip/limit query parameters; clamping happens in the services.
func page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.DefaultQuery("skip", c.Query("offset")))
	return limit, offset
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.ValidationMessage(err)})
		return false
	}
	return true
}

// respondError maps the shared service errors; anything else is logged and reported as 500 with msg.
func respondError(c *gin.Context, log *zap.Logger, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		log.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
