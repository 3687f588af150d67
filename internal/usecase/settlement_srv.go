package usecase

import (
	"context"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/pkg/apperror"
	"toolcart/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentProofVerifier checks the HMAC proof sent back by the checkout widget.
type PaymentProofVerifier interface {
	Verify(gatewayOrderID, paymentID, signature string) bool
}

// SettlementService moves an order from pending to paid or failed exactly once.
type SettlementService interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, gatewayOrderID, signature string) (*entity.Order, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, errorInfo string) (*entity.Order, error)
}

type settlementService struct {
	orders   repository.OrderRepository
	verifier PaymentProofVerifier
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *zap.Logger
}

func NewSettlementService(orders repository.OrderRepository, verifier PaymentProofVerifier, m *metrics.Metrics, log *zap.Logger) SettlementService {
	return &settlementService{
		orders:   orders,
		verifier: verifier,
		metrics:  m,
		now:      time.Now,
		log:      log.With(zap.String("service", "settlement")),
	}
}

func (s *settlementService) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, gatewayOrderID, signature string) (*entity.Order, error) {
	// 1. Proof of payment
	if !s.verifier.Verify(gatewayOrderID, paymentID, signature) {
		s.metrics.Settlement("paid", "signature_mismatch")
		s.log.Warn("Payment signature mismatch",
			zap.String("order_id", orderID.String()),
			zap.String("payment_id", paymentID),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil, apperror.New(apperror.KindSignatureMismatch, "payment verification failed")
	}

	// 2. Compare-and-swap pending -> paid
	applied, err := s.orders.MarkPaidIfPending(ctx, orderID, repository.PaidTransition{
		PaymentID:      paymentID,
		GatewayOrderID: gatewayOrderID,
		Signature:      signature,
		PaidAt:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	// 3. Re-read to report the current state or classify the lost race
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.metrics.Settlement("paid", "not_found")
		return nil, apperror.NotFound("order not found")
	}

	if applied {
		s.metrics.Settlement("paid", "applied")
		s.log.Info("Order paid",
			zap.String("order_id", orderID.String()),
			zap.String("payment_id", paymentID),
		)
		return order, nil
	}

	switch {
	case order.PaidWith(paymentID):
		s.metrics.Settlement("paid", "idempotent")
		return order, nil
	case order.PaymentStatus == entity.PaymentStatusFailed:
		s.metrics.Settlement("paid", "conflict")
		return nil, apperror.Conflict("order payment already failed")
	case order.PaymentStatus == entity.PaymentStatusPaid:
		s.metrics.Settlement("paid", "conflict")
		s.log.Warn("Order already paid with a different payment",
			zap.String("order_id", orderID.String()),
			zap.String("payment_id", paymentID),
		)
		return nil, apperror.Conflict("order already paid")
	default:
		s.metrics.Settlement("paid", "conflict")
		return nil, apperror.Conflict("order is bound to a different gateway order")
	}
}

func (s *settlementService) MarkFailed(ctx context.Context, orderID uuid.UUID, errorInfo string) (*entity.Order, error) {
	// 1. Compare-and-swap pending -> failed
	applied, err := s.orders.MarkFailedIfPending(ctx, orderID, errorInfo)
	if err != nil {
		return nil, err
	}

	// 2. Re-read
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.metrics.Settlement("failed", "not_found")
		return nil, apperror.NotFound("order not found")
	}

	if applied {
		s.metrics.Settlement("failed", "applied")
		s.log.Info("Order payment failed",
			zap.String("order_id", orderID.String()),
			zap.String("error", errorInfo),
		)
		return order, nil
	}

	if order.PaymentStatus == entity.PaymentStatusFailed {
		s.metrics.Settlement("failed", "idempotent")
		return order, nil
	}

	s.metrics.Settlement("failed", "conflict")
	return nil, apperror.Conflict("order already paid")
}
