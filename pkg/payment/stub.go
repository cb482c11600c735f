package payment

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StubProvider accepts every push without calling out. Used when M-Pesa credentials are absent.
type StubProvider struct {
	log *zap.Logger
}

func NewStubProvider(log *zap.Logger) *StubProvider {
	return &StubProvider{log: log.Named("stub_payment")}
}

func (s *StubProvider) STKPush(_ context.Context, req STKPushRequest) (*STKPushResponse, error) {
	id := uuid.NewString()
	s.log.Warn("stub stk push accepted; no prompt was sent",
		zap.Uint("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
	)
	return &STKPushResponse{
		MerchantRequestID:   "stub-" + id,
		CheckoutRequestID:   "ws_CO_stub_" + id,
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}
