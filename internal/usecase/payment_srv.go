package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/internal/dto/request"
	"toolcart/internal/dto/response"
	"toolcart/internal/gateway"
	"toolcart/pkg/apperror"
	"toolcart/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCurrency = "INR"

// PaymentGateway is the remote side of checkout.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.PaymentIntent, error)
	FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

type PaymentService interface {
	CreatePaymentOrder(ctx context.Context, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, req *request.VerifyPaymentRequest) (*response.VerifyPaymentResponse, error)
	RecordFailure(ctx context.Context, req *request.PaymentFailureRequest) error
	GetPaymentDetails(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

type paymentService struct {
	orders     repository.OrderRepository
	gateway    PaymentGateway
	settlement SettlementService
	now        func() time.Time
	log        *zap.Logger
}

func NewPaymentService(
	orders repository.OrderRepository,
	gw PaymentGateway,
	settlement SettlementService,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		orders:     orders,
		gateway:    gw,
		settlement: settlement,
		now:        time.Now,
		log:        log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreatePaymentOrder(ctx context.Context, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error) {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	receipt := req.Receipt
	if receipt == "" {
		receipt = "order_rcptid_" + req.OrderID
		if req.OrderID == "" {
			receipt = "order_rcptid_" + strconv.FormatInt(s.now().UnixMilli(), 10)
		}
	}

	// 2. Local order must exist, be pending and match the amount
	var orderID uuid.UUID
	if req.OrderID != "" {
		orderID = uuid.MustParse(req.OrderID)
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperror.NotFound("order not found")
		}
		if order.PaymentStatus != entity.PaymentStatusPending {
			return nil, apperror.Conflict(fmt.Sprintf("order is already %s", order.PaymentStatus))
		}
		if order.Total != req.Amount {
			return nil, apperror.New(apperror.KindValidation, "amount does not match order total")
		}
		// A checkout already opened for this order is reused
		if order.GatewayOrderID != nil {
			return s.boundIntent(order, receipt), nil
		}
	}

	// 3. Remote intent
	intent, err := s.gateway.CreateOrder(ctx, req.Amount, currency, receipt)
	if err != nil {
		return nil, err
	}

	// 4. Bind the gateway order so the webhook can resolve it
	if req.OrderID != "" {
		attached, err := s.orders.AttachGatewayOrder(ctx, orderID, intent.GatewayOrderID)
		if err != nil {
			return nil, err
		}
		if !attached {
			return s.concurrentIntent(ctx, orderID, receipt, intent.GatewayOrderID)
		}
	}

	s.log.Info("Payment order created",
		zap.String("gateway_order_id", intent.GatewayOrderID),
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", intent.Amount),
		zap.Bool("stub", intent.Stub),
	)

	return &response.PaymentOrderResponse{
		ID:       intent.GatewayOrderID,
		Currency: intent.Currency,
		Amount:   intent.Amount,
		Receipt:  intent.Receipt,
		OrderID:  req.OrderID,
		Stub:     intent.Stub,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, req *request.VerifyPaymentRequest) (*response.VerifyPaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	order, err := s.settlement.MarkPaid(ctx,
		uuid.MustParse(req.OrderID),
		req.RazorpayPaymentID,
		req.RazorpayOrderID,
		req.RazorpaySignature,
	)
	if err != nil {
		return nil, err
	}

	return &response.VerifyPaymentResponse{
		Success: true,
		Message: "Payment verified successfully",
		Order:   response.OrderToResponse(order),
	}, nil
}

func (s *paymentService) RecordFailure(ctx context.Context, req *request.PaymentFailureRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationError(errs)
	}

	_, err := s.settlement.MarkFailed(ctx, uuid.MustParse(req.OrderID), req.Error)
	return err
}

func (s *paymentService) GetPaymentDetails(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	return s.gateway.FetchPayment(ctx, paymentID)
}

// ==================== HELPER METHODS ====================

func (s *paymentService) boundIntent(order *entity.Order, receipt string) *response.PaymentOrderResponse {
	s.log.Info("Reusing gateway order bound to order",
		zap.String("order_id", order.ID.String()),
		zap.String("gateway_order_id", *order.GatewayOrderID),
	)
	return &response.PaymentOrderResponse{
		ID:       *order.GatewayOrderID,
		Currency: order.Currency,
		Amount:   order.Total,
		Receipt:  receipt,
		OrderID:  order.ID.String(),
	}
}

// concurrentIntent handles a lost attach: the winner's gateway order is
// returned so every checkout for the order pays the same intent.
func (s *paymentService) concurrentIntent(ctx context.Context, orderID uuid.UUID, receipt, discarded string) (*response.PaymentOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NotFound("order not found")
	}
	if order.PaymentStatus != entity.PaymentStatusPending || order.GatewayOrderID == nil {
		return nil, apperror.Conflict("order is no longer pending")
	}

	s.log.Warn("Discarding gateway order, another checkout was bound first",
		zap.String("order_id", orderID.String()),
		zap.String("discarded_gateway_order_id", discarded),
	)
	return s.boundIntent(order, receipt), nil
}
