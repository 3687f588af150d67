package request

type CreatePaymentOrderRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"` // minor units
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
	OrderID  string `json:"orderId" validate:"omitempty,uuid"`
	Receipt  string `json:"receipt" validate:"omitempty,max=40"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	OrderID           string `json:"orderId" validate:"required,uuid"`
}

type PaymentFailureRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Error   string `json:"error" validate:"max=500"`
}
