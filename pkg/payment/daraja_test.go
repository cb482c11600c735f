package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeDaraja struct {
	tokenStatus int
	pushStatus  int
	pushDelay   time.Duration
	tokenCalls  atomic.Int32
	pushCalls   atomic.Int32
	lastPush    stkPushPayload
	lastAuth    string
}

func (f *fakeDaraja) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-123","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.pushCalls.Add(1)
		f.lastAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		if f.pushDelay > 0 {
			time.Sleep(f.pushDelay)
		}
		if f.pushStatus != http.StatusOK {
			w.WriteHeader(f.pushStatus)
			_, _ = w.Write([]byte(`{"errorCode":"400.002.02","errorMessage":"Bad Request"}`))
			return
		}
		_, _ = w.Write([]byte(`{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925",` +
			`"ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success"}`))
	})
	return mux
}

func newTestProvider(t *testing.T, f *fakeDaraja, timeout time.Duration) *DarajaProvider {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	fixed := time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC)
	return NewDarajaProvider(DarajaOptions{
		BaseURL:        srv.URL + "/",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		CallbackURL:    "https://shop.example/api/v1/payments/mpesa/callback",
		Timeout:        timeout,
		Now:            func() time.Time { return fixed },
	}, zaptest.NewLogger(t))
}

func TestPasswordAndTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC))
	assert.Equal(t, "20240305090708", ts)

	pw := Password("174379", "passkey", ts)
	raw, err := base64.StdEncoding.DecodeString(pw)
	require.NoError(t, err)
	assert.Equal(t, "174379passkey20240305090708", string(raw))
}

func TestDarajaSTKPush_Success(t *testing.T) {
	f := &fakeDaraja{tokenStatus: http.StatusOK, pushStatus: http.StatusOK}
	p := newTestProvider(t, f, time.Second)

	resp, err := p.STKPush(context.Background(), STKPushRequest{
		Phone:   "254700000000",
		Amount:  decimal.RequireFromString("499.40"),
		OrderID: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "29115-34620561-1", resp.MerchantRequestID)
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)

	assert.Equal(t, "Bearer tok-123", f.lastAuth)
	assert.Equal(t, "174379", f.lastPush.BusinessShortCode)
	assert.Equal(t, "20240305090708", f.lastPush.Timestamp)
	assert.Equal(t, Password("174379", "passkey", "20240305090708"), f.lastPush.Password)
	assert.Equal(t, "CustomerPayBillOnline", f.lastPush.TransactionType)
	assert.Equal(t, int64(500), f.lastPush.Amount)
	assert.Equal(t, "254700000000", f.lastPush.PartyA)
	assert.Equal(t, "174379", f.lastPush.PartyB)
	assert.Equal(t, "254700000000", f.lastPush.PhoneNumber)
	assert.Equal(t, "Order12", f.lastPush.AccountReference)
	assert.Equal(t, "Payment for order", f.lastPush.TransactionDesc)
}

func TestDarajaSTKPush_ReusesToken(t *testing.T) {
	f := &fakeDaraja{tokenStatus: http.StatusOK, pushStatus: http.StatusOK}
	p := newTestProvider(t, f, time.Second)

	for i := 0; i < 3; i++ {
		_, err := p.STKPush(context.Background(), STKPushRequest{Phone: "254700000000", Amount: decimal.NewFromInt(1), OrderID: 1})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())
	assert.Equal(t, int32(3), f.pushCalls.Load())
}

func TestDarajaSTKPush_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeDaraja
		wantErr  error
		wantPush int32
	}{
		{
			name:     "token exchange rejected",
			fake:     &fakeDaraja{tokenStatus: http.StatusUnauthorized, pushStatus: http.StatusOK},
			wantErr:  ErrUpstreamAuth,
			wantPush: 0,
		},
		{
			name:     "push rejected",
			fake:     &fakeDaraja{tokenStatus: http.StatusOK, pushStatus: http.StatusBadRequest},
			wantErr:  ErrUpstreamPush,
			wantPush: 1,
		},
		{
			name:     "push times out",
			fake:     &fakeDaraja{tokenStatus: http.StatusOK, pushStatus: http.StatusOK, pushDelay: 300 * time.Millisecond},
			wantErr:  ErrUpstreamTimeout,
			wantPush: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.fake, 100*time.Millisecond)
			resp, err := p.STKPush(context.Background(), STKPushRequest{Phone: "254700000000", Amount: decimal.NewFromInt(10), OrderID: 5})
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantPush, tt.fake.pushCalls.Load())
		})
	}
}

func TestDarajaSTKPush_UnreachableIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewDarajaProvider(DarajaOptions{BaseURL: url, ConsumerKey: "k", ConsumerSecret: "s", Timeout: time.Second}, zaptest.NewLogger(t))
	_, err := p.STKPush(context.Background(), STKPushRequest{Phone: "254700000000", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestStubProvider(t *testing.T) {
	p := NewStubProvider(zaptest.NewLogger(t))
	a, err := p.STKPush(context.Background(), STKPushRequest{Phone: "254700000000", Amount: decimal.NewFromInt(1), OrderID: 1})
	require.NoError(t, err)
	b, err := p.STKPush(context.Background(), STKPushRequest{Phone: "254700000000", Amount: decimal.NewFromInt(1), OrderID: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a.CheckoutRequestID, b.CheckoutRequestID)
	assert.NotEmpty(t, a.MerchantRequestID)
}
