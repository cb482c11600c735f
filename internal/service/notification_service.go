package service

import (
	"context"
	"encoding/json"
	"errors"

	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pusher delivers a push notification to one device token.
type Pusher interface {
	SendToUser(ctx context.Context, fcmToken string, notifType, title, body string, data map[string]any) error
}

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	push     Pusher
	log      *zap.Logger
}

// NewNotificationService wires the store and, optionally, a push channel (nil disables push).
func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, push Pusher, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, push: push, log: log.Named("notification")}
}

// Notify stores an in-app notification and pushes it to the user's device when one is registered.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]any) error {
	var dataJSON string
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(ctx, userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, notifType, title, body string, data map[string]any) {
	if s.push == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	if err := s.push.SendToUser(ctx, u.FCMToken, notifType, title, body, data); err != nil {
		s.log.Warn("push not delivered", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUserID(userID, limit, offset)
}

func (s *NotificationService) MarkRead(id, userID uint) error {
	err := s.repo.MarkRead(id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
