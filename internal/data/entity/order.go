package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

const PaymentMethodRazorpay = "razorpay"

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"` // minor units
}

// Order is created pending by checkout and settled exactly once.
type Order struct {
	BaseNoDelete
	UserID         uuid.UUID     `db:"user_id"`
	Items          []OrderItem   `db:"items"`
	Total          int64         `db:"total"` // minor units
	Currency       string        `db:"currency"`
	PaymentStatus  PaymentStatus `db:"payment_status"`
	PaymentMethod  *string       `db:"payment_method"`
	PaymentID      *string       `db:"payment_id"`
	GatewayOrderID *string       `db:"gateway_order_id"`
	Signature      *string       `db:"signature"`
	PaymentError   *string       `db:"payment_error"`
	PaidAt         *time.Time    `db:"paid_at"`
}

// PaidWith reports whether the order is already settled by the given payment.
func (o *Order) PaidWith(paymentID string) bool {
	return o.PaymentStatus == PaymentStatusPaid && o.PaymentID != nil && *o.PaymentID == paymentID
}
