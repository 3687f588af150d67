package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/pkg/apperror"
	"toolcart/pkg/metrics"

	"go.uber.org/zap"
)

type WebhookResult string

const (
	WebhookAccepted WebhookResult = "accepted"
	WebhookRejected WebhookResult = "rejected"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

type BodyVerifier interface {
	Verify(rawBody []byte, signature string) bool
}

// ProofSigner recomputes the checkout proof for a webhook-authenticated payment.
type ProofSigner interface {
	Sign(gatewayOrderID, paymentID string) string
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type WebhookService interface {
	// Handle returns an error only when the event could not be processed and
	// the gateway should redeliver it.
	Handle(ctx context.Context, rawBody []byte, signature string) (WebhookResult, error)
}

type webhookService struct {
	verifier   BodyVerifier
	signer     ProofSigner
	orders     repository.OrderRepository
	settlement SettlementService
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewWebhookService(
	verifier BodyVerifier,
	signer ProofSigner,
	orders repository.OrderRepository,
	settlement SettlementService,
	m *metrics.Metrics,
	log *zap.Logger,
) WebhookService {
	return &webhookService{
		verifier:   verifier,
		signer:     signer,
		orders:     orders,
		settlement: settlement,
		metrics:    m,
		log:        log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) Handle(ctx context.Context, rawBody []byte, signature string) (WebhookResult, error) {
	// 1. Authenticate raw body
	if !s.verifier.Verify(rawBody, signature) {
		s.metrics.WebhookEvent("unknown", "rejected")
		s.log.Warn("Webhook signature mismatch")
		return WebhookRejected, nil
	}

	// 2. Parse
	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		s.metrics.WebhookEvent("unknown", "rejected")
		s.log.Warn("Webhook body is not valid JSON", zap.Error(err))
		return WebhookRejected, nil
	}
	payment := event.Payload.Payment.Entity

	// 3. Dispatch
	var err error
	switch event.Event {
	case EventPaymentCaptured:
		err = s.captured(ctx, payment.OrderID, payment.ID)
	case EventPaymentFailed:
		info := payment.ErrorDescription
		if info == "" {
			info = payment.ErrorCode
		}
		err = s.failed(ctx, payment.OrderID, info)
	default:
		s.metrics.WebhookEvent("unhandled", "ignored")
		s.log.Info("Unhandled webhook event", zap.String("event", event.Event))
		return WebhookAccepted, nil
	}

	if err != nil {
		s.metrics.WebhookEvent(event.Event, "error")
		s.log.Error("Webhook processing failed",
			zap.Error(err),
			zap.String("event", event.Event),
			zap.String("payment_id", payment.ID),
		)
		return "", err
	}

	return WebhookAccepted, nil
}

func (s *webhookService) captured(ctx context.Context, gatewayOrderID, paymentID string) error {
	order, err := s.findOrder(ctx, EventPaymentCaptured, gatewayOrderID, paymentID)
	if err != nil || order == nil {
		return err
	}

	// Event is already authenticated; settle with the checkout proof for the same pair.
	proof := s.signer.Sign(gatewayOrderID, paymentID)
	_, err = s.settlement.MarkPaid(ctx, order.ID, paymentID, gatewayOrderID, proof)
	return s.settled(EventPaymentCaptured, order, paymentID, err)
}

func (s *webhookService) failed(ctx context.Context, gatewayOrderID, errorInfo string) error {
	order, err := s.findOrder(ctx, EventPaymentFailed, gatewayOrderID, "")
	if err != nil || order == nil {
		return err
	}

	_, err = s.settlement.MarkFailed(ctx, order.ID, errorInfo)
	return s.settled(EventPaymentFailed, order, "", err)
}

func (s *webhookService) findOrder(ctx context.Context, event, gatewayOrderID, paymentID string) (*entity.Order, error) {
	if gatewayOrderID == "" {
		s.metrics.WebhookEvent(event, "unknown_order")
		s.log.Warn("Webhook payment has no order id", zap.String("event", event), zap.String("payment_id", paymentID))
		return nil, nil
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.metrics.WebhookEvent(event, "unknown_order")
		s.log.Warn("Webhook for unknown gateway order",
			zap.String("event", event),
			zap.String("gateway_order_id", gatewayOrderID),
		)
	}
	return order, nil
}

// settled treats lost races and terminal states as handled so the gateway stops redelivering.
func (s *webhookService) settled(event string, order *entity.Order, paymentID string, err error) error {
	switch {
	case err == nil:
		s.metrics.WebhookEvent(event, "settled")
		s.log.Info("Webhook settled order",
			zap.String("event", event),
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", paymentID),
		)
		return nil
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrNotFound):
		s.metrics.WebhookEvent(event, "conflict")
		s.log.Warn("Webhook settlement skipped",
			zap.Error(err),
			zap.String("event", event),
			zap.String("order_id", order.ID.String()),
		)
		return nil
	default:
		return err
	}
}
