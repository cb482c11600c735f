package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartdecor/internal/domain"
	"smartdecor/internal/metrics"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"
	"smartdecor/pkg/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidPhone  = errors.New("phone number is required")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidOrder  = errors.New("order id is required")
)

// CallbackOutcome is how a callback was applied.
type CallbackOutcome string

const (
	CallbackCompleted        CallbackOutcome = "completed"
	CallbackFailed           CallbackOutcome = "failed"
	CallbackNotFound         CallbackOutcome = "not_found"
	CallbackAlreadyProcessed CallbackOutcome = "already_processed"
	CallbackMalformed        CallbackOutcome = "malformed"
)

// Messages returned to the provider for each outcome.
var callbackMessages = map[CallbackOutcome]string{
	CallbackCompleted:        "Payment successful",
	CallbackFailed:           "Payment failed",
	CallbackNotFound:         "Payment not found",
	CallbackAlreadyProcessed: "Payment already processed",
}

type CallbackResult struct {
	Outcome CallbackOutcome
	Message string
	Payment *models.Payment // nil when not found
}

// PaymentNotifier is told about a payment once its terminal state is committed.
type PaymentNotifier interface {
	PaymentSettled(ctx context.Context, p *models.Payment)
}

type PaymentService struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	provider payment.Provider
	notifier PaymentNotifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

type PaymentServiceOption func(*PaymentService)

func WithPaymentNotifier(n PaymentNotifier) PaymentServiceOption {
	return func(s *PaymentService) { s.notifier = n }
}

func WithPaymentMetrics(m *metrics.Metrics) PaymentServiceOption {
	return func(s *PaymentService) { s.metrics = m }
}

// WithClock overrides the reconciliation clock.
func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) { s.now = now }
}

func NewPaymentService(db *gorm.DB, payments *repository.PaymentRepository, provider payment.Provider, log *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{
		db:       db,
		payments: payments,
		provider: provider,
		log:      log.Named("payment"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate sends an STK push and records a PENDING payment carrying the provider's
// correlation ids. No row is written when either upstream call fails. Two calls for the
// same order create two independent attempts.
func (s *PaymentService) Initiate(ctx context.Context, phone string, amount decimal.Decimal, orderID uint) (*models.Payment, error) {
	switch {
	case phone == "":
		return nil, ErrInvalidPhone
	case !amount.IsPositive():
		return nil, ErrInvalidAmount
	case orderID == 0:
		return nil, ErrInvalidOrder
	}

	start := time.Now()
	resp, err := s.provider.STKPush(ctx, payment.STKPushRequest{Phone: phone, Amount: amount, OrderID: orderID})
	outcome := pushOutcome(err)
	s.observePush(outcome, time.Since(start))
	if err != nil {
		s.log.Error("stk push failed", zap.Uint("order_id", orderID), zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	p := &models.Payment{
		OrderID:           orderID,
		Amount:            decimal.NewNullDecimal(amount),
		PaymentMethod:     domain.PaymentMethodMpesa,
		Status:            domain.PaymentPending,
		PhoneNumber:       &phone,
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.payments.WithTx(tx).Create(p)
	})
	if err != nil {
		// the prompt already reached the phone; the callback for it will be logged as not found
		s.observePush(metrics.PushPersistError, 0)
		s.log.Error("pending payment not recorded",
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record payment: %w", err)
	}
	s.log.Info("stk push accepted",
		zap.Uint("payment_id", p.ID),
		zap.Uint("order_id", orderID),
		zap.String("merchant_request_id", p.MerchantRequestID),
		zap.String("checkout_request_id", p.CheckoutRequestID),
	)
	return p, nil
}

// HandleCallback applies a provider callback to the matching payment. Only a malformed
// body or a storage failure is returned as an error; unknown and already-settled payments
// are acknowledged without changes.
func (s *PaymentService) HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error) {
	s.log.Info("mpesa callback received", zap.ByteString("body", raw))

	cb, err := payment.ParseSTKCallback(raw)
	if err != nil {
		s.observeCallback(CallbackMalformed)
		s.log.Warn("mpesa callback rejected", zap.Error(err))
		return nil, err
	}

	var (
		outcome CallbackOutcome
		settled *models.Payment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		p, err := repo.LockByCheckoutRequestID(cb.CheckoutRequestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = CallbackNotFound
			return nil
		}
		if err != nil {
			return err
		}
		settled = p
		if p.Status.IsTerminal() {
			outcome = CallbackAlreadyProcessed
			return nil
		}
		outcome = applyCallback(p, cb, s.now())
		return repo.Update(p)
	})
	if err != nil {
		s.log.Error("mpesa callback not applied", zap.String("checkout_request_id", cb.CheckoutRequestID), zap.Error(err))
		return nil, fmt.Errorf("reconcile payment: %w", err)
	}

	s.observeCallback(outcome)
	fields := []zap.Field{
		zap.String("checkout_request_id", cb.CheckoutRequestID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc),
		zap.String("outcome", string(outcome)),
	}
	switch outcome {
	case CallbackNotFound:
		s.log.Warn("mpesa callback for unknown payment", fields...)
		settled = nil
	case CallbackAlreadyProcessed:
		s.log.Warn("duplicate mpesa callback ignored", append(fields, zap.String("status", string(settled.Status)))...)
	default:
		s.log.Info("payment reconciled", append(fields, zap.Uint("payment_id", settled.ID))...)
		if s.notifier != nil {
			s.notifier.PaymentSettled(ctx, settled)
		}
	}
	return &CallbackResult{Outcome: outcome, Message: callbackMessages[outcome], Payment: settled}, nil
}

// applyCallback moves a PENDING payment to its terminal state. A failed result leaves the
// receipt, amount, phone and transaction date as they were.
func applyCallback(p *models.Payment, cb *payment.STKCallback, now time.Time) CallbackOutcome {
	if !cb.Succeeded() {
		p.Status = domain.PaymentFailed
		return CallbackFailed
	}
	p.Status = domain.PaymentCompleted
	p.MpesaReceiptNumber = cb.Metadata.ReceiptNumber
	p.Amount = cb.Metadata.Amount
	p.PhoneNumber = cb.Metadata.PhoneNumber
	p.TransactionDate = &now
	return CallbackCompleted
}

func (s *PaymentService) GetByCheckoutRequestID(checkoutRequestID string) (*models.Payment, error) {
	p, err := s.payments.GetByCheckoutRequestID(checkoutRequestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PaymentService) ListByOrder(orderID uint) ([]models.Payment, error) {
	return s.payments.ListByOrderID(orderID)
}

func pushOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.PushAccepted
	case errors.Is(err, payment.ErrUpstreamTimeout):
		return metrics.PushTimeout
	case errors.Is(err, payment.ErrUpstreamAuth):
		return metrics.PushAuthError
	default:
		return metrics.PushRejected
	}
}

func (s *PaymentService) observePush(outcome string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.PaymentsInitiated.WithLabelValues(outcome).Inc()
	if d > 0 {
		s.metrics.UpstreamDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (s *PaymentService) observeCallback(outcome CallbackOutcome) {
	if s.metrics != nil {
		s.metrics.CallbacksReceived.WithLabelValues(string(outcome)).Inc()
	}
}
