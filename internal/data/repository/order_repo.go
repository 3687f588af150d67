package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PaidTransition carries the proof stored when an order is settled.
type PaidTransition struct {
	PaymentID      string
	GatewayOrderID string
	Signature      string
	PaidAt         time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Order, error)

	// Conditional updates. Each returns false when the order was not pending
	// (or missing) so the caller can decide between idempotent success and conflict.
	// AttachGatewayOrder also returns false once a gateway order is bound.
	AttachGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error)
	MarkPaidIfPending(ctx context.Context, id uuid.UUID, paid PaidTransition) (bool, error)
	MarkFailedIfPending(ctx context.Context, id uuid.UUID, errorInfo string) (bool, error)
}

type orderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOrderRepository(db database.PgxIface, log *zap.Logger) OrderRepository {
	return &orderRepository{
		db:  db,
		log: log.With(zap.String("repository", "order")),
	}
}

const orderColumns = `id, user_id, items, total, currency, payment_status, payment_method,
		       payment_id, gateway_order_id, signature, payment_error, paid_at,
		       created_at, updated_at`

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var order entity.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Items,
		&order.Total,
		&order.Currency,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.PaymentID,
		&order.GatewayOrderID,
		&order.Signature,
		&order.PaymentError,
		&order.PaidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find order by ID",
			zap.Error(err),
			zap.String("order_id", id.String()),
		)
		return nil, fmt.Errorf("find order by ID %s: %w", id.String(), err)
	}

	return order, nil
}

func (r *orderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, gatewayOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find order by gateway order ID",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil, fmt.Errorf("find order by gateway order ID %s: %w", gatewayOrderID, err)
	}

	return order, nil
}

func (r *orderRepository) AttachGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error) {
	query := `
		UPDATE orders
		SET gateway_order_id = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND gateway_order_id IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, gatewayOrderID)
	if err != nil {
		r.log.Error("Failed to attach gateway order",
			zap.Error(err),
			zap.String("order_id", id.String()),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return false, fmt.Errorf("attach gateway order %s to %s: %w", gatewayOrderID, id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *orderRepository) MarkPaidIfPending(ctx context.Context, id uuid.UUID, paid PaidTransition) (bool, error) {
	// A pending order already bound to another gateway order is not updated.
	query := `
		UPDATE orders
		SET payment_status = 'paid', payment_method = $5, payment_id = $2,
		    gateway_order_id = $3, signature = $4, paid_at = $6, updated_at = $6
		WHERE id = $1
		  AND payment_status = 'pending'
		  AND (gateway_order_id IS NULL OR gateway_order_id = $3)
	`

	result, err := r.db.Exec(ctx, query,
		id,
		paid.PaymentID,
		paid.GatewayOrderID,
		paid.Signature,
		entity.PaymentMethodRazorpay,
		paid.PaidAt,
	)
	if err != nil {
		r.log.Error("Failed to mark order paid",
			zap.Error(err),
			zap.String("order_id", id.String()),
			zap.String("payment_id", paid.PaymentID),
		)
		return false, fmt.Errorf("mark order %s paid: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *orderRepository) MarkFailedIfPending(ctx context.Context, id uuid.UUID, errorInfo string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = 'failed', payment_error = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, errorInfo)
	if err != nil {
		r.log.Error("Failed to mark order failed",
			zap.Error(err),
			zap.String("order_id", id.String()),
		)
		return false, fmt.Errorf("mark order %s failed: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
