package usecase

import (
	"context"
	"sync"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/internal/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- in-memory stores with the same conditional semantics as Postgres ---

type secretKey struct {
	subject string
	purpose entity.SecretPurpose
}

type memorySecretStore struct {
	mu      sync.Mutex
	secrets map[secretKey]entity.Secret
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{secrets: make(map[secretKey]entity.Secret)}
}

func (m *memorySecretStore) Put(ctx context.Context, s *entity.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[secretKey{s.SubjectID, s.Purpose}] = *s
	return nil
}

func (m *memorySecretStore) Get(ctx context.Context, subjectID string, purpose entity.SecretPurpose) (*entity.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[secretKey{subjectID, purpose}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySecretStore) DeleteIfPresent(ctx context.Context, subjectID string, purpose entity.SecretPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, secretKey{subjectID, purpose})
	return nil
}

func (m *memorySecretStore) DeleteIfMatch(ctx context.Context, subjectID string, purpose entity.SecretPurpose, hashedValue string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := secretKey{subjectID, purpose}
	s, ok := m.secrets[k]
	if !ok || s.HashedValue != hashedValue {
		return false, nil
	}
	delete(m.secrets, k)
	return true, nil
}

func (m *memorySecretStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.secrets)
}

type memoryOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]entity.Order
}

func newMemoryOrderStore(orders ...entity.Order) *memoryOrderStore {
	m := &memoryOrderStore{orders: make(map[uuid.UUID]entity.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memoryOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memoryOrderStore) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.GatewayOrderID != nil && *o.GatewayOrderID == gatewayOrderID {
			return &o, nil
		}
	}
	return nil, nil
}

func (m *memoryOrderStore) AttachGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != entity.PaymentStatusPending || o.GatewayOrderID != nil {
		return false, nil
	}
	o.GatewayOrderID = &gatewayOrderID
	m.orders[id] = o
	return true, nil
}

func (m *memoryOrderStore) MarkPaidIfPending(ctx context.Context, id uuid.UUID, paid repository.PaidTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != entity.PaymentStatusPending {
		return false, nil
	}
	if o.GatewayOrderID != nil && *o.GatewayOrderID != paid.GatewayOrderID {
		return false, nil
	}
	method := entity.PaymentMethodRazorpay
	o.PaymentStatus = entity.PaymentStatusPaid
	o.PaymentMethod = &method
	o.PaymentID = &paid.PaymentID
	o.GatewayOrderID = &paid.GatewayOrderID
	o.Signature = &paid.Signature
	o.PaidAt = &paid.PaidAt
	m.orders[id] = o
	return true, nil
}

func (m *memoryOrderStore) MarkFailedIfPending(ctx context.Context, id uuid.UUID, errorInfo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != entity.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = entity.PaymentStatusFailed
	o.PaymentError = &errorInfo
	m.orders[id] = o
	return true, nil
}

func pendingOrder(total int64) entity.Order {
	now := time.Now()
	return entity.Order{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:        uuid.New(),
		Items:         []entity.OrderItem{{ProductID: "drill-01", Quantity: 1, Price: total}},
		Total:         total,
		Currency:      "INR",
		PaymentStatus: entity.PaymentStatusPending,
	}
}

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendNotification(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*entity.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*entity.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, receipt)
	if i, _ := args.Get(0).(*gateway.PaymentIntent); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID)
	if p, _ := args.Get(0).(*gateway.Payment); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSettlement struct{ mock.Mock }

func (m *mockSettlement) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, gatewayOrderID, signature string) (*entity.Order, error) {
	args := m.Called(ctx, orderID, paymentID, gatewayOrderID, signature)
	if o, _ := args.Get(0).(*entity.Order); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettlement) MarkFailed(ctx context.Context, orderID uuid.UUID, errorInfo string) (*entity.Order, error) {
	args := m.Called(ctx, orderID, errorInfo)
	if o, _ := args.Get(0).(*entity.Order); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
