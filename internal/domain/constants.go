package domain

import "strings"

// Role is the authorization role carried on users and in access tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole normalizes legacy mixed-case values ("Admin", "Customer").
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCustomer:
		return RoleCustomer, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// PaymentStatus moves PENDING -> COMPLETED or PENDING -> FAILED and never again.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

const PaymentMethodMpesa = "M-PESA"

const (
	OrderStatusPending = "pending"
)

const (
	NotificationPaymentCompleted = "PAYMENT_COMPLETED"
	NotificationPaymentFailed    = "PAYMENT_FAILED"
	NotificationOrderPlaced      = "ORDER_PLACED"
)

const (
	MediaTypeImage = "IMAGE"
	MediaTypeVideo = "VIDEO"
)
