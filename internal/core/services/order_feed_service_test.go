package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/mocks"
	"github.com/axondapurkita/order-notify/internal/core/ports"
	"github.com/axondapurkita/order-notify/internal/core/services"
)

func TestOrderFeedService_RecentForShop(t *testing.T) {
	ctx := context.Background()
	seller := domain.Identity{UserID: uuid.New(), Role: domain.RoleSeller, ShopID: 42}
	shop := &domain.Shop{ID: 42, Name: "Dapur Bu Sri"}

	t.Run("fills shop name and uses default limit", func(t *testing.T) {
		orderRepo := mocks.NewMockOrderRepository()
		access := mocks.NewMockShopAccessService()
		svc := services.NewOrderFeedService(orderRepo, access)

		access.On("AuthorizeJoin", ctx, seller, int64(42)).Return(shop, nil)
		orderRepo.On("ListRecentByShop", ctx, int64(42), services.DefaultRecentOrdersLimit).
			Return([]*domain.OrderSummary{{ID: "o2", ShopID: 42}, {ID: "o1", ShopID: 42}}, nil)

		orders, err := svc.RecentForShop(ctx, ports.RecentOrdersParams{Identity: seller, ShopID: 42})

		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o2", orders[0].ID)
		assert.Equal(t, "Dapur Bu Sri", orders[1].ShopName)
		access.AssertExpectations(t)
		orderRepo.AssertExpectations(t)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		orderRepo := mocks.NewMockOrderRepository()
		access := mocks.NewMockShopAccessService()
		svc := services.NewOrderFeedService(orderRepo, access)

		access.On("AuthorizeJoin", ctx, seller, int64(42)).Return(shop, nil)
		orderRepo.On("ListRecentByShop", ctx, int64(42), services.MaxRecentOrdersLimit).
			Return([]*domain.OrderSummary{}, nil)

		_, err := svc.RecentForShop(ctx, ports.RecentOrdersParams{Identity: seller, ShopID: 42, Limit: 5000})

		require.NoError(t, err)
		orderRepo.AssertExpectations(t)
	})

	t.Run("forbidden does not touch orders", func(t *testing.T) {
		orderRepo := mocks.NewMockOrderRepository()
		access := mocks.NewMockShopAccessService()
		svc := services.NewOrderFeedService(orderRepo, access)

		access.On("AuthorizeJoin", ctx, seller, int64(43)).Return(nil, apperrors.ErrForbidden)

		orders, err := svc.RecentForShop(ctx, ports.RecentOrdersParams{Identity: seller, ShopID: 43})

		assert.Nil(t, orders)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		orderRepo.AssertNotCalled(t, "ListRecentByShop")
	})
}

func TestOrderFeedService_RecentForBuyer(t *testing.T) {
	ctx := context.Background()

	t.Run("lists own orders", func(t *testing.T) {
		buyer := domain.Identity{UserID: uuid.New(), Role: domain.RoleBuyer}
		orderRepo := mocks.NewMockOrderRepository()
		svc := services.NewOrderFeedService(orderRepo, mocks.NewMockShopAccessService())

		orderRepo.On("ListRecentByBuyer", ctx, buyer.UserID, 10).
			Return([]*domain.OrderSummary{{ID: "o9"}}, nil)

		orders, err := svc.RecentForBuyer(ctx, ports.RecentOrdersParams{Identity: buyer, Limit: 10})

		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("invalid identity", func(t *testing.T) {
		svc := services.NewOrderFeedService(mocks.NewMockOrderRepository(), mocks.NewMockShopAccessService())

		_, err := svc.RecentForBuyer(ctx, ports.RecentOrdersParams{})

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, services.ClampLimit(0))
	assert.Equal(t, 20, services.ClampLimit(-3))
	assert.Equal(t, 7, services.ClampLimit(7))
	assert.Equal(t, 100, services.ClampLimit(101))
}
