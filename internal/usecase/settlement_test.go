package usecase

import (
	"context"
	"sync"
	"testing"

	"toolcart/internal/data/entity"
	"toolcart/internal/gateway"
	"toolcart/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKeySecret = "key-secret-for-settlement-tests"

func newSettlement(store *memoryOrderStore) (SettlementService, *gateway.PaymentVerifier) {
	proof := gateway.NewPaymentVerifier(testKeySecret)
	return NewSettlementService(store, proof, nil, zap.NewNop()), proof
}

func TestSettlement_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order becomes paid", func(t *testing.T) {
		order := pendingOrder(100)
		svc, proof := newSettlement(newMemoryOrderStore(order))

		paid, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", proof.Sign("order_g1", "pay_1"))

		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusPaid, paid.PaymentStatus)
		assert.Equal(t, "pay_1", *paid.PaymentID)
		assert.Equal(t, "order_g1", *paid.GatewayOrderID)
		assert.NotNil(t, paid.PaidAt)
	})

	t.Run("bad signature is rejected without touching the order", func(t *testing.T) {
		order := pendingOrder(100)
		store := newMemoryOrderStore(order)
		svc, proof := newSettlement(store)

		_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", proof.Sign("order_g1", "pay_2"))

		assert.ErrorIs(t, err, apperror.ErrSignatureMismatch)
		current, _ := store.FindByID(ctx, order.ID)
		assert.Equal(t, entity.PaymentStatusPending, current.PaymentStatus)
	})

	t.Run("same payment twice is idempotent", func(t *testing.T) {
		order := pendingOrder(100)
		svc, proof := newSettlement(newMemoryOrderStore(order))
		sig := proof.Sign("order_g1", "pay_1")

		_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", sig)
		require.NoError(t, err)
		again, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", sig)

		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusPaid, again.PaymentStatus)
	})

	t.Run("different payment conflicts", func(t *testing.T) {
		order := pendingOrder(100)
		svc, proof := newSettlement(newMemoryOrderStore(order))

		_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", proof.Sign("order_g1", "pay_1"))
		require.NoError(t, err)
		_, err = svc.MarkPaid(ctx, order.ID, "pay_2", "order_g1", proof.Sign("order_g1", "pay_2"))

		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("failed order conflicts", func(t *testing.T) {
		order := pendingOrder(100)
		order.PaymentStatus = entity.PaymentStatusFailed
		svc, proof := newSettlement(newMemoryOrderStore(order))

		_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", proof.Sign("order_g1", "pay_1"))

		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("proof for another gateway order conflicts", func(t *testing.T) {
		order := pendingOrder(100)
		bound := "order_g1"
		order.GatewayOrderID = &bound
		svc, proof := newSettlement(newMemoryOrderStore(order))

		_, err := svc.MarkPaid(ctx, order.ID, "pay_9", "order_other", proof.Sign("order_other", "pay_9"))

		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("missing order", func(t *testing.T) {
		svc, proof := newSettlement(newMemoryOrderStore())

		_, err := svc.MarkPaid(ctx, uuid.New(), "pay_1", "order_g1", proof.Sign("order_g1", "pay_1"))

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSettlement_MarkFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order fails with info", func(t *testing.T) {
		order := pendingOrder(100)
		svc, _ := newSettlement(newMemoryOrderStore(order))

		failed, err := svc.MarkFailed(ctx, order.ID, "card declined")

		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusFailed, failed.PaymentStatus)
		assert.Equal(t, "card declined", *failed.PaymentError)
	})

	t.Run("already failed is idempotent", func(t *testing.T) {
		order := pendingOrder(100)
		svc, _ := newSettlement(newMemoryOrderStore(order))

		_, err := svc.MarkFailed(ctx, order.ID, "card declined")
		require.NoError(t, err)
		_, err = svc.MarkFailed(ctx, order.ID, "card declined")

		assert.NoError(t, err)
	})

	t.Run("paid order conflicts", func(t *testing.T) {
		order := pendingOrder(100)
		svc, proof := newSettlement(newMemoryOrderStore(order))
		_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", proof.Sign("order_g1", "pay_1"))
		require.NoError(t, err)

		_, err = svc.MarkFailed(ctx, order.ID, "late failure")

		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("missing order", func(t *testing.T) {
		svc, _ := newSettlement(newMemoryOrderStore())

		_, err := svc.MarkFailed(ctx, uuid.New(), "x")

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSettlement_ConcurrentPaidAndFailed(t *testing.T) {
	ctx := context.Background()
	order := pendingOrder(100)
	store := newMemoryOrderStore(order)
	svc, proof := newSettlement(store)
	sig := proof.Sign("order_g1", "pay_1")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.MarkPaid(ctx, order.ID, "pay_1", "order_g1", sig)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.MarkFailed(ctx, order.ID, "timeout")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	final, _ := store.FindByID(ctx, order.ID)
	var conflicts int
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, apperror.ErrConflict)
			conflicts++
		}
	}

	// Whichever transition won, every call on the other side conflicts.
	assert.NotEqual(t, entity.PaymentStatusPending, final.PaymentStatus)
	assert.Equal(t, 5, conflicts)
}
