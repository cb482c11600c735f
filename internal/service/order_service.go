package service

import (
	"context"
	"errors"
	"fmt"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrEmptyOrder = errors.New("order must contain at least one item")

type OrderItemInput struct {
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

type OrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Status          string
	Items           []OrderItemInput
}

// OrderUpdate carries optional order fields; nil leaves a field unchanged.
type OrderUpdate struct {
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	TotalAmount     *decimal.Decimal
	ShippingAddress *string
	Status          *string
}

type OrderService struct {
	db            *gorm.DB
	orders        *repository.OrderRepository
	mail          *MailService
	notifications *NotificationService
	log           *zap.Logger
}

// NewOrderService wires order storage; mail and notifications are optional side channels.
func NewOrderService(db *gorm.DB, orders *repository.OrderRepository, mail *MailService, notifications *NotificationService, log *zap.Logger) *OrderService {
	return &OrderService{db: db, orders: orders, mail: mail, notifications: notifications, log: log.Named("order")}
}

// Create stores the order with its items in one transaction, then tells the shop and the customer.
func (s *OrderService) Create(ctx context.Context, userID uint, in OrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	o := &models.Order{
		UserID:          userID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		TotalAmount:     in.TotalAmount,
		ShippingAddress: in.ShippingAddress,
		Status:          in.Status,
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		o.Items = append(o.Items, models.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(o)
	})
	if err != nil {
		return nil, err
	}
	created, err := s.orders.GetByID(o.ID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, created)
	return created, nil
}

func (s *OrderService) announce(ctx context.Context, o *models.Order) {
	if s.mail != nil {
		if err := s.mail.SendNewOrder(ctx, o); err != nil {
			s.log.Warn("new order email not sent", zap.Uint("order_id", o.ID), zap.Error(err))
		}
	}
	if s.notifications != nil {
		err := s.notifications.Notify(ctx, o.UserID, domain.NotificationOrderPlaced,
			"Order placed", fmt.Sprintf("We received your order #%d.", o.ID),
			map[string]any{"order_id": o.ID})
		if err != nil {
			s.log.Warn("order notification not stored", zap.Uint("order_id", o.ID), zap.Error(err))
		}
	}
}

// List returns every order for admins and only the caller's own orders otherwise.
func (s *OrderService) List(userID uint, role domain.Role, limit, offset int) ([]models.Order, error) {
	limit, offset = ClampPage(limit, offset)
	if role == domain.RoleAdmin {
		return s.orders.List(limit, offset)
	}
	return s.orders.ListByUserID(userID, limit, offset)
}

func (s *OrderService) ListMine(userID uint, limit, offset int) ([]models.Order, error) {
	limit, offset = ClampPage(limit, offset)
	return s.orders.ListByUserID(userID, limit, offset)
}

// Get returns the order when the caller owns it or is an admin.
func (s *OrderService) Get(userID uint, role domain.Role, id uint) (*models.Order, error) {
	o, err := s.orders.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if role != domain.RoleAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) Update(userID uint, role domain.Role, id uint, in OrderUpdate) (*models.Order, error) {
	o, err := s.Get(userID, role, id)
	if err != nil {
		return nil, err
	}
	setIfPresent(&o.CustomerName, in.CustomerName)
	setIfPresent(&o.CustomerEmail, in.CustomerEmail)
	setIfPresent(&o.CustomerPhone, in.CustomerPhone)
	setIfPresent(&o.ShippingAddress, in.ShippingAddress)
	setIfPresent(&o.Status, in.Status)
	if in.TotalAmount != nil {
		o.TotalAmount = *in.TotalAmount
	}
	if err := s.orders.Update(o); err != nil {
		return nil, err
	}
	return s.orders.GetByID(id)
}

func (s *OrderService) Delete(userID uint, role domain.Role, id uint) error {
	if _, err := s.Get(userID, role, id); err != nil {
		return err
	}
	err := s.orders.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
