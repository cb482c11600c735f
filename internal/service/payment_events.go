package service

import (
	"context"
	"errors"
	"fmt"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster fans realtime events out to connected clients.
type Broadcaster interface {
	BroadcastToUser(userID uint, payload any)
	BroadcastToRole(role domain.Role, payload any)
}

// PaymentStatusEvent is the realtime message sent when a payment settles.
type PaymentStatusEvent struct {
	Type               string               `json:"type"`
	PaymentID          uint                 `json:"payment_id"`
	OrderID            uint                 `json:"order_id"`
	CheckoutRequestID  string               `json:"checkout_request_id"`
	Status             domain.PaymentStatus `json:"status"`
	MpesaReceiptNumber *string              `json:"mpesa_receipt_number,omitempty"`
}

// PaymentEvents tells the order's owner and connected admins that a payment settled.
// Every step is best effort; the payment is already committed.
type PaymentEvents struct {
	orders        *repository.OrderRepository
	notifications *NotificationService
	hub           Broadcaster
	log           *zap.Logger
}

func NewPaymentEvents(orders *repository.OrderRepository, notifications *NotificationService, hub Broadcaster, log *zap.Logger) *PaymentEvents {
	return &PaymentEvents{orders: orders, notifications: notifications, hub: hub, log: log.Named("payment_events")}
}

func (e *PaymentEvents) PaymentSettled(ctx context.Context, p *models.Payment) {
	event := PaymentStatusEvent{
		Type:               "payment_status",
		PaymentID:          p.ID,
		OrderID:            p.OrderID,
		CheckoutRequestID:  p.CheckoutRequestID,
		Status:             p.Status,
		MpesaReceiptNumber: p.MpesaReceiptNumber,
	}
	if e.hub != nil {
		e.hub.BroadcastToRole(domain.RoleAdmin, event)
	}

	order, err := e.orders.GetByID(p.OrderID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			e.log.Warn("order lookup failed", zap.Uint("order_id", p.OrderID), zap.Error(err))
		}
		return
	}
	if e.hub != nil {
		e.hub.BroadcastToUser(order.UserID, event)
	}

	notifType, title, body := domain.NotificationPaymentFailed, "Payment failed",
		fmt.Sprintf("Your M-Pesa payment for order #%d was not completed.", order.ID)
	if p.Status == domain.PaymentCompleted {
		notifType, title = domain.NotificationPaymentCompleted, "Payment received"
		body = fmt.Sprintf("We received your M-Pesa payment for order #%d.", order.ID)
	}
	data := map[string]any{"order_id": order.ID, "checkout_request_id": p.CheckoutRequestID, "status": string(p.Status)}
	if p.MpesaReceiptNumber != nil {
		data["mpesa_receipt_number"] = *p.MpesaReceiptNumber
	}
	if err := e.notifications.Notify(ctx, order.UserID, notifType, title, body, data); err != nil {
		e.log.Warn("payment notification not stored", zap.Uint("order_id", order.ID), zap.Error(err))
	}
}
