package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUpstreamAuth means the client-credentials exchange did not return a token.
	ErrUpstreamAuth = errors.New("upstream auth failed")
	// ErrUpstreamPush means the provider rejected the STK push request.
	ErrUpstreamPush = errors.New("upstream push rejected")
	// ErrUpstreamTimeout means either upstream call ran past its deadline.
	ErrUpstreamTimeout = errors.New("upstream timed out")
	// ErrMalformedPayload means a callback body could not be parsed or lacked required keys.
	ErrMalformedPayload = errors.New("malformed callback payload")
)

// STKPushRequest asks the provider to prompt Phone for Amount against OrderID.
type STKPushRequest struct {
	Phone   string
	Amount  decimal.Decimal
	OrderID uint
}

// STKPushResponse carries the correlation ids the provider assigned to the push.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Provider sends STK push requests. Implementations make a single attempt with no retries.
type Provider interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}
