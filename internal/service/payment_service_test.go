package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"smartdecor/internal/domain"
	"smartdecor/internal/metrics"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"
	"smartdecor/pkg/payment"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeProvider) STKPush(_ context.Context, req payment.STKPushRequest) (*payment.STKPushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payment.STKPushResponse{
		MerchantRequestID: fmt.Sprintf("m-%d-%d", req.OrderID, f.calls),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d_%d", req.OrderID, f.calls),
		ResponseCode:      "0",
	}, nil
}

type recordingNotifier struct {
	settled []*models.Payment
}

func (r *recordingNotifier) PaymentSettled(_ context.Context, p *models.Payment) {
	r.settled = append(r.settled, p)
}

var reconcileTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newPaymentService(t *testing.T, db *gorm.DB, provider payment.Provider) (*PaymentService, *recordingNotifier, *metrics.Metrics) {
	n := &recordingNotifier{}
	m := metrics.New()
	svc := NewPaymentService(db, repository.NewPaymentRepository(db), provider, zaptest.NewLogger(t),
		WithPaymentNotifier(n),
		WithPaymentMetrics(m),
		WithClock(func() time.Time { return reconcileTime }),
	)
	return svc, n, m
}

func successBody(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":%q,"ResultCode":0,
		"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[
		{"Name":"MpesaReceiptNumber","Value":"XYZ123"},{"Name":"Amount","Value":500},{"Name":"PhoneNumber","Value":254700000000}]}}}}`, checkoutID))
}

func failureBody(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":%q,"ResultCode":1,"ResultDesc":"The balance is insufficient for the transaction."}}}`, checkoutID))
}

func TestPaymentService_InitiateCreatesOnePendingRow(t *testing.T) {
	db := setupTestDB(t)
	svc, _, m := newPaymentService(t, db, &fakeProvider{})

	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countPayments(t, db))
	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
	assert.Equal(t, domain.PaymentMethodMpesa, stored.PaymentMethod)
	assert.Equal(t, uint(42), stored.OrderID)
	assert.NotEmpty(t, stored.MerchantRequestID)
	assert.NotEmpty(t, stored.CheckoutRequestID)
	require.NotNil(t, stored.PhoneNumber)
	assert.Equal(t, "254700000000", *stored.PhoneNumber)
	assert.True(t, decimal.NewFromInt(500).Equal(stored.Amount.Decimal))
	assert.Nil(t, stored.MpesaReceiptNumber)
	assert.Nil(t, stored.TransactionDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsInitiated.WithLabelValues(metrics.PushAccepted)))
}

func TestPaymentService_InitiateIsNotIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newPaymentService(t, db, &fakeProvider{})

	a, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(10), 7)
	require.NoError(t, err)
	b, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(10), 7)
	require.NoError(t, err)

	assert.NotEqual(t, a.CheckoutRequestID, b.CheckoutRequestID)
	list, err := svc.ListByOrder(7)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPaymentService_InitiateUpstreamFailureWritesNothing(t *testing.T) {
	for _, upstream := range []error{payment.ErrUpstreamAuth, payment.ErrUpstreamPush, payment.ErrUpstreamTimeout} {
		t.Run(upstream.Error(), func(t *testing.T) {
			db := setupTestDB(t)
			svc, _, _ := newPaymentService(t, db, &fakeProvider{err: fmt.Errorf("%w: boom", upstream)})

			p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 1)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, upstream)
			assert.Equal(t, int64(0), countPayments(t, db))
		})
	}
}

func TestPaymentService_InitiateValidatesInput(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc, _, _ := newPaymentService(t, db, provider)

	_, err := svc.Initiate(context.Background(), "", decimal.NewFromInt(1), 1)
	assert.ErrorIs(t, err, ErrInvalidPhone)
	_, err = svc.Initiate(context.Background(), "254700000000", decimal.Zero, 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(-5), 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(1), 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.Equal(t, 0, provider.calls)
}

func TestPaymentService_CallbackSuccessCompletesPayment(t *testing.T) {
	db := setupTestDB(t)
	svc, notifier, m := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254711111111", decimal.NewFromInt(450), 3)
	require.NoError(t, err)

	res, err := svc.HandleCallback(context.Background(), successBody(p.CheckoutRequestID))
	require.NoError(t, err)
	assert.Equal(t, CallbackCompleted, res.Outcome)
	assert.Equal(t, "Payment successful", res.Message)

	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, stored.Status)
	require.NotNil(t, stored.MpesaReceiptNumber)
	assert.Equal(t, "XYZ123", *stored.MpesaReceiptNumber)
	assert.True(t, decimal.NewFromInt(500).Equal(stored.Amount.Decimal))
	require.NotNil(t, stored.PhoneNumber)
	assert.Equal(t, "254700000000", *stored.PhoneNumber)
	require.NotNil(t, stored.TransactionDate)
	assert.True(t, reconcileTime.Equal(*stored.TransactionDate))
	assert.False(t, stored.UpdatedAt.Before(p.UpdatedAt))

	require.Len(t, notifier.settled, 1)
	assert.Equal(t, p.ID, notifier.settled[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksReceived.WithLabelValues(string(CallbackCompleted))))
}

func TestPaymentService_CallbackFailureLeavesMetadata(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	svc, notifier, _ := newPaymentService(t, db, &fakeProvider{})

	// a bare pending row, as the reconciler would find it when nothing but ids were stored
	bare := &models.Payment{OrderID: 5, PaymentMethod: domain.PaymentMethodMpesa, Status: domain.PaymentPending,
		MerchantRequestID: "m-5", CheckoutRequestID: "ws_CO_5"}
	require.NoError(t, repo.Create(bare))

	res, err := svc.HandleCallback(context.Background(), failureBody("ws_CO_5"))
	require.NoError(t, err)
	assert.Equal(t, CallbackFailed, res.Outcome)
	assert.Equal(t, "Payment failed", res.Message)

	stored, err := repo.GetByCheckoutRequestID("ws_CO_5")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, stored.Status)
	assert.Nil(t, stored.MpesaReceiptNumber)
	assert.False(t, stored.Amount.Valid)
	assert.Nil(t, stored.PhoneNumber)
	assert.Nil(t, stored.TransactionDate)
	assert.Len(t, notifier.settled, 1)
}

func TestPaymentService_CallbackFailureKeepsInitiatedValues(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254722222222", decimal.RequireFromString("99.50"), 8)
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), failureBody(p.CheckoutRequestID))
	require.NoError(t, err)

	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, "254722222222", *stored.PhoneNumber)
	assert.True(t, decimal.RequireFromString("99.50").Equal(stored.Amount.Decimal))
}

func TestPaymentService_CallbackMissingMetadataStoresNull(t *testing.T) {
	db := setupTestDB(t)
	svc, _, _ := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 4)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"ABC"}]}}}}`, p.CheckoutRequestID)
	res, err := svc.HandleCallback(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, CallbackCompleted, res.Outcome)

	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, stored.Status)
	assert.Equal(t, "ABC", *stored.MpesaReceiptNumber)
	assert.False(t, stored.Amount.Valid)
	assert.Nil(t, stored.PhoneNumber)
	assert.NotNil(t, stored.TransactionDate)
}

func TestPaymentService_CallbackUnknownPayment(t *testing.T) {
	db := setupTestDB(t)
	svc, notifier, _ := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 4)
	require.NoError(t, err)

	res, err := svc.HandleCallback(context.Background(), successBody("ws_CO_unknown"))
	require.NoError(t, err)
	assert.Equal(t, CallbackNotFound, res.Outcome)
	assert.Equal(t, "Payment not found", res.Message)
	assert.Nil(t, res.Payment)
	assert.Empty(t, notifier.settled)

	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
}

func TestPaymentService_CallbackMalformed(t *testing.T) {
	db := setupTestDB(t)
	svc, _, m := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 4)
	require.NoError(t, err)

	for _, body := range []string{`not json`, `{"Body":{"stkCallback":{"ResultCode":0}}}`} {
		res, err := svc.HandleCallback(context.Background(), []byte(body))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, payment.ErrMalformedPayload)
	}
	stored, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallbacksReceived.WithLabelValues(string(CallbackMalformed))))
}

func TestPaymentService_DuplicateCallbackDoesNotModify(t *testing.T) {
	db := setupTestDB(t)
	svc, notifier, _ := newPaymentService(t, db, &fakeProvider{})
	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 4)
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), successBody(p.CheckoutRequestID))
	require.NoError(t, err)
	first, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)

	// a late failure for the same checkout id must not flip a completed payment
	res, err := svc.HandleCallback(context.Background(), failureBody(p.CheckoutRequestID))
	require.NoError(t, err)
	assert.Equal(t, CallbackAlreadyProcessed, res.Outcome)
	assert.Equal(t, "Payment already processed", res.Message)

	res, err = svc.HandleCallback(context.Background(), successBody(p.CheckoutRequestID))
	require.NoError(t, err)
	assert.Equal(t, CallbackAlreadyProcessed, res.Outcome)

	after, err := svc.GetByCheckoutRequestID(p.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, after.Status)
	assert.True(t, first.UpdatedAt.Equal(after.UpdatedAt))
	assert.Len(t, notifier.settled, 1)
}

// Round trip through the real Daraja client against a fake upstream.
func TestPaymentService_RoundTripWithDaraja(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MerchantRequestID":"29115-1","CheckoutRequestID":"ws_CO_RT","ResponseCode":"0"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	db := setupTestDB(t)
	provider := payment.NewDarajaProvider(payment.DarajaOptions{
		BaseURL: srv.URL, ConsumerKey: "k", ConsumerSecret: "s", ShortCode: "174379", PassKey: "pk", Timeout: time.Second,
	}, zaptest.NewLogger(t))
	svc, _, _ := newPaymentService(t, db, provider)

	p, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 11)
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_RT", p.CheckoutRequestID)

	_, err = svc.HandleCallback(context.Background(), successBody(p.CheckoutRequestID))
	require.NoError(t, err)

	stored, err := svc.GetByCheckoutRequestID("ws_CO_RT")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, stored.Status)
	assert.Equal(t, "XYZ123", *stored.MpesaReceiptNumber)
}

func TestPaymentService_RejectedTokenWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	db := setupTestDB(t)
	provider := payment.NewDarajaProvider(payment.DarajaOptions{BaseURL: srv.URL, ConsumerKey: "k", ConsumerSecret: "s", Timeout: time.Second}, zaptest.NewLogger(t))
	svc, _, m := newPaymentService(t, db, provider)

	_, err := svc.Initiate(context.Background(), "254700000000", decimal.NewFromInt(500), 1)
	assert.ErrorIs(t, err, payment.ErrUpstreamAuth)
	assert.Equal(t, int64(0), countPayments(t, db))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsInitiated.WithLabelValues(metrics.PushAuthError)))
}
