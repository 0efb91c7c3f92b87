package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// MockShopRepository is a mock implementation of ports.ShopRepository
type MockShopRepository struct {
	mock.Mock
}

func NewMockShopRepository() *MockShopRepository {
	return &MockShopRepository{}
}

func (m *MockShopRepository) GetByID(ctx context.Context, id int64) (*domain.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

// MockOrderRepository is a mock implementation of ports.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) GetSummary(ctx context.Context, orderID string) (*domain.OrderSummary, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderSummary), args.Error(1)
}

func (m *MockOrderRepository) ListRecentByShop(ctx context.Context, shopID int64, limit int) ([]*domain.OrderSummary, error) {
	args := m.Called(ctx, shopID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OrderSummary), args.Error(1)
}

func (m *MockOrderRepository) ListRecentByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]*domain.OrderSummary, error) {
	args := m.Called(ctx, buyerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OrderSummary), args.Error(1)
}

// MockSessionVerifier is a mock implementation of ports.SessionVerifier
type MockSessionVerifier struct {
	mock.Mock
}

func NewMockSessionVerifier() *MockSessionVerifier {
	return &MockSessionVerifier{}
}

func (m *MockSessionVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(domain.Identity), args.Error(1)
}

// MockShopAccessService is a mock implementation of ports.ShopAccessService
type MockShopAccessService struct {
	mock.Mock
}

func NewMockShopAccessService() *MockShopAccessService {
	return &MockShopAccessService{}
}

func (m *MockShopAccessService) AuthorizeJoin(ctx context.Context, identity domain.Identity, shopID int64) (*domain.Shop, error) {
	args := m.Called(ctx, identity, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

// MockOrderFeedService is a mock implementation of ports.OrderFeedService
type MockOrderFeedService struct {
	mock.Mock
}

func NewMockOrderFeedService() *MockOrderFeedService {
	return &MockOrderFeedService{}
}

func (m *MockOrderFeedService) RecentForShop(ctx context.Context, params ports.RecentOrdersParams) ([]*domain.OrderSummary, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OrderSummary), args.Error(1)
}

func (m *MockOrderFeedService) RecentForBuyer(ctx context.Context, params ports.RecentOrdersParams) ([]*domain.OrderSummary, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OrderSummary), args.Error(1)
}

// MockOrderNotificationService is a mock implementation of ports.OrderNotificationService
type MockOrderNotificationService struct {
	mock.Mock
}

func NewMockOrderNotificationService() *MockOrderNotificationService {
	return &MockOrderNotificationService{}
}

func (m *MockOrderNotificationService) PublishTransition(ctx context.Context, params ports.PublishTransitionParams) (*domain.OrderEvent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderEvent), args.Error(1)
}

func (m *MockOrderNotificationService) Shutdown() {
	m.Called()
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) EmitToShop(shopID int64, event domain.OrderEvent) error {
	args := m.Called(shopID, event)
	return args.Error(0)
}

func (m *MockEventBroadcaster) EmitToUser(userID uuid.UUID, event domain.OrderEvent) error {
	args := m.Called(userID, event)
	return args.Error(0)
}

// MockPushNotifier is a mock implementation of ports.PushNotifier
type MockPushNotifier struct {
	mock.Mock
}

func NewMockPushNotifier() *MockPushNotifier {
	return &MockPushNotifier{}
}

func (m *MockPushNotifier) NotifyOrder(ctx context.Context, userID uuid.UUID, event domain.OrderEvent) {
	m.Called(ctx, userID, event)
}

// MockSessionRevoker is a mock implementation of ports.SessionRevoker
type MockSessionRevoker struct {
	mock.Mock
}

func NewMockSessionRevoker() *MockSessionRevoker {
	return &MockSessionRevoker{}
}

func (m *MockSessionRevoker) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

var (
	_ ports.ShopRepository           = (*MockShopRepository)(nil)
	_ ports.OrderRepository          = (*MockOrderRepository)(nil)
	_ ports.SessionVerifier          = (*MockSessionVerifier)(nil)
	_ ports.ShopAccessService        = (*MockShopAccessService)(nil)
	_ ports.OrderFeedService         = (*MockOrderFeedService)(nil)
	_ ports.OrderNotificationService = (*MockOrderNotificationService)(nil)
	_ ports.EventBroadcaster         = (*MockEventBroadcaster)(nil)
	_ ports.PushNotifier             = (*MockPushNotifier)(nil)
	_ ports.SessionRevoker           = (*MockSessionRevoker)(nil)
)
