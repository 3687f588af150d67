package adaptor

import (
	"io"
	"net/http"

	"toolcart/internal/dto/request"
	"toolcart/internal/usecase"
	"toolcart/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	SignatureHeader     = "X-Razorpay-Signature"
	maxWebhookBodyBytes = 1 << 20
)

type PaymentHandler struct {
	service usecase.PaymentService
	webhook usecase.WebhookService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, webhook usecase.WebhookService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		webhook: webhook,
		log:     log,
	}
}

// CreateOrder handles POST /api/payments/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePaymentOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.CreatePaymentOrder(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "create payment order")
		return
	}

	utils.WriteRaw(w, http.StatusOK, resp)
}

// Verify handles POST /api/payments/verify
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "verify payment")
		return
	}

	utils.WriteRaw(w, http.StatusOK, resp)
}

// Failure handles POST /api/payments/failure
func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request) {
	var req request.PaymentFailureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RecordFailure(r.Context(), &req); err != nil {
		writeError(w, h.log, err, "record payment failure")
		return
	}

	utils.WriteRaw(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment failure recorded",
	})
}

// Webhook handles POST /api/payments/webhook. The signature covers the raw
// body, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.WriteRaw(w, http.StatusBadRequest, map[string]string{"error": "Invalid body"})
		return
	}

	result, err := h.webhook.Handle(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.log.Error("Webhook handler failed", zap.Error(err))
		utils.WriteRaw(w, http.StatusInternalServerError, map[string]string{"error": "Webhook handler failed"})
		return
	}

	if result == usecase.WebhookRejected {
		utils.WriteRaw(w, http.StatusBadRequest, map[string]string{"error": "Invalid signature"})
		return
	}

	utils.WriteRaw(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Details handles GET /api/payments/{paymentId}
func (h *PaymentHandler) Details(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")

	payment, err := h.service.GetPaymentDetails(r.Context(), paymentID)
	if err != nil {
		writeError(w, h.log, err, "fetch payment details")
		return
	}

	utils.WriteRaw(w, http.StatusOK, map[string]any{
		"success": true,
		"payment": payment,
	})
}
