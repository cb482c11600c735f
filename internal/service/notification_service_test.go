package service

import (
	"context"
	"testing"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sentPush struct {
	token, notifType, title string
	data                    map[string]any
}

type fakePusher struct{ sent []sentPush }

func (f *fakePusher) SendToUser(_ context.Context, token, notifType, title, _ string, data map[string]any) error {
	f.sent = append(f.sent, sentPush{token: token, notifType: notifType, title: title, data: data})
	return nil
}

type fakeBroadcaster struct {
	toUser map[uint][]any
	toRole map[domain.Role][]any
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{toUser: map[uint][]any{}, toRole: map[domain.Role][]any{}}
}

func (f *fakeBroadcaster) BroadcastToUser(userID uint, payload any) {
	f.toUser[userID] = append(f.toUser[userID], payload)
}

func (f *fakeBroadcaster) BroadcastToRole(role domain.Role, payload any) {
	f.toRole[role] = append(f.toRole[role], payload)
}

func TestNotificationService_NotifyPushesOnlyWithToken(t *testing.T) {
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	push := &fakePusher{}
	svc := NewNotificationService(repository.NewNotificationRepository(db), users, push, zaptest.NewLogger(t))

	withToken := &models.User{Email: "a@example.com", Role: domain.RoleCustomer, FCMToken: "dev-1"}
	without := &models.User{Email: "b@example.com", Role: domain.RoleCustomer}
	require.NoError(t, users.Create(withToken))
	require.NoError(t, users.Create(without))

	require.NoError(t, svc.Notify(context.Background(), withToken.ID, domain.NotificationOrderPlaced, "Order placed", "body", nil))
	require.NoError(t, svc.Notify(context.Background(), without.ID, domain.NotificationOrderPlaced, "Order placed", "body", nil))

	require.Len(t, push.sent, 1)
	assert.Equal(t, "dev-1", push.sent[0].token)

	list, err := svc.List(without.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, svc.MarkRead(list[0].ID, without.ID))
	assert.ErrorIs(t, svc.MarkRead(list[0].ID, withToken.ID), ErrNotFound)
}

func TestPaymentEvents_PaymentSettled(t *testing.T) {
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	orders := repository.NewOrderRepository(db)
	push := &fakePusher{}
	hub := newFakeBroadcaster()
	notifications := NewNotificationService(repository.NewNotificationRepository(db), users, push, zaptest.NewLogger(t))
	events := NewPaymentEvents(orders, notifications, hub, zaptest.NewLogger(t))

	owner := &models.User{Email: "owner@example.com", Role: domain.RoleCustomer, FCMToken: "dev-owner"}
	require.NoError(t, users.Create(owner))
	order := &models.Order{UserID: owner.ID, TotalAmount: decimal.NewFromInt(500), Status: domain.OrderStatusPending}
	require.NoError(t, orders.Create(order))

	receipt := "XYZ123"
	events.PaymentSettled(context.Background(), &models.Payment{
		ID: 1, OrderID: order.ID, Status: domain.PaymentCompleted, CheckoutRequestID: "ws_CO_1", MpesaReceiptNumber: &receipt,
	})

	require.Len(t, hub.toUser[owner.ID], 1)
	ev := hub.toUser[owner.ID][0].(PaymentStatusEvent)
	assert.Equal(t, domain.PaymentCompleted, ev.Status)
	assert.Equal(t, "ws_CO_1", ev.CheckoutRequestID)
	assert.Len(t, hub.toRole[domain.RoleAdmin], 1)

	require.Len(t, push.sent, 1)
	assert.Equal(t, domain.NotificationPaymentCompleted, push.sent[0].notifType)
	assert.Equal(t, "XYZ123", push.sent[0].data["mpesa_receipt_number"])

	// unknown order: admins still hear about it, nobody is notified
	events.PaymentSettled(context.Background(), &models.Payment{ID: 2, OrderID: 999, Status: domain.PaymentFailed, CheckoutRequestID: "ws_CO_2"})
	assert.Len(t, hub.toRole[domain.RoleAdmin], 2)
	assert.Len(t, push.sent, 1)
}

func TestStringifyData(t *testing.T) {
	out := stringifyData("PAYMENT_COMPLETED", map[string]any{
		"order_id": uint(7),
		"amount":   decimal.RequireFromString("12.50"),
		"note":     "hi",
		"flags":    []string{"a"},
	})
	assert.Equal(t, map[string]string{
		"type":     "PAYMENT_COMPLETED",
		"order_id": "7",
		"amount":   "12.5",
		"note":     "hi",
		"flags":    `["a"]`,
	}, out)
}
