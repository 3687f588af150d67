package response

import (
	"time"

	"toolcart/internal/data/entity"
)

type PaymentOrderResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	Receipt  string `json:"receipt"`
	OrderID  string `json:"orderId,omitempty"`
	Stub     bool   `json:"stub,omitempty"`
}

type OrderResponse struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	Items          []entity.OrderItem `json:"items"`
	Total          int64              `json:"total"`
	Currency       string             `json:"currency"`
	PaymentStatus  string             `json:"paymentStatus"`
	PaymentMethod  *string            `json:"paymentMethod,omitempty"`
	PaymentID      *string            `json:"paymentId,omitempty"`
	GatewayOrderID *string            `json:"razorpayOrderId,omitempty"`
	PaymentError   *string            `json:"paymentError,omitempty"`
	PaidAt         *time.Time         `json:"paidAt,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type VerifyPaymentResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Order   *OrderResponse `json:"order,omitempty"`
}

// OrderToResponse leaves the stored signature out.
func OrderToResponse(order *entity.Order) *OrderResponse {
	if order == nil {
		return nil
	}
	return &OrderResponse{
		ID:             order.ID.String(),
		UserID:         order.UserID.String(),
		Items:          order.Items,
		Total:          order.Total,
		Currency:       order.Currency,
		PaymentStatus:  string(order.PaymentStatus),
		PaymentMethod:  order.PaymentMethod,
		PaymentID:      order.PaymentID,
		GatewayOrderID: order.GatewayOrderID,
		PaymentError:   order.PaymentError,
		PaidAt:         order.PaidAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
