package wire

import (
	"toolcart/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/create-order", paymentHandler.CreateOrder)
		r.Post("/verify", paymentHandler.Verify)
		r.Post("/failure", paymentHandler.Failure)
		// Server-to-server, authenticated by X-Razorpay-Signature
		r.Post("/webhook", paymentHandler.Webhook)
		r.Get("/{paymentId}", paymentHandler.Details)
	})
}
