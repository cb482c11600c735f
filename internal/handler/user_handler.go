package handler

import (
	"errors"
	"net/http"
	"time"

	"smartdecor/internal/middleware"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc *service.UserService
	log *zap.Logger
}

func NewUserHandler(svc *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log.Named("user_handler")}
}

type UpdateUserRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=255"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	Gender       *string `json:"gender" binding:"omitempty,max=32"`
	DateOfBirth  *string `json:"date_of_birth"` // YYYY-MM-DD
	ProfileImage *string `json:"profile_image" binding:"omitempty,url"`
}

func (r UpdateUserRequest) toUpdate() (service.ProfileUpdate, error) {
	in := service.ProfileUpdate{
		Name:         r.Name,
		Email:        r.Email,
		Address:      r.Address,
		Phone:        r.Phone,
		Gender:       r.Gender,
		ProfileImage: r.ProfileImage,
	}
	if r.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *r.DateOfBirth)
		if err != nil {
			return in, err
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.svc.Get(middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	h.update(c, middleware.GetUserID(c))
}

// Update changes another user's profile; admins only unless it is the caller's own.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.update(c, id)
}

func (h *UserHandler) update(c *gin.Context, targetID uint) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toUpdate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_of_birth format (use YYYY-MM-DD)"})
		return
	}
	u, err := h.svc.Update(middleware.GetUserID(c), middleware.GetRole(c), targetID, in)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) List(c *gin.Context) {
	limit, offset := page(c)
	limit, offset = service.ClampPage(limit, offset)
	users, err := h.svc.List(limit, offset)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Delete(c *gin.Context) {
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

// RegisterFCMToken saves the device token used for push notifications.
func (h *UserHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.SetFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
