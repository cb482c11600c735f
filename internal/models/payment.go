package models

import (
	"time"

	"smartdecor/internal/domain"

	"github.com/shopspring/decimal"
)

// Payment is one STK push attempt against an order. OrderID is a plain indexed
// column: orders are owned elsewhere and the push is accepted without checking them.
type Payment struct {
	ID                 uint                 `gorm:"primaryKey" json:"id"`
	OrderID            uint                 `gorm:"not null;index" json:"order_id"`
	Amount             decimal.NullDecimal  `gorm:"type:decimal(12,2)" json:"amount"`
	PaymentMethod      string               `gorm:"size:20;not null" json:"payment_method"`
	Status             domain.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	PhoneNumber        *string              `gorm:"size:32" json:"phone_number"`
	MpesaReceiptNumber *string              `gorm:"size:64" json:"mpesa_receipt_number"`
	TransactionDate    *time.Time           `json:"transaction_date"`
	MerchantRequestID  string               `gorm:"size:128;not null;uniqueIndex:idx_payment_correlation" json:"merchant_request_id"`
	CheckoutRequestID  string               `gorm:"size:128;not null;uniqueIndex:idx_payment_correlation;uniqueIndex" json:"checkout_request_id"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
