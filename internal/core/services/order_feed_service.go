package services

import (
	"context"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

const (
	DefaultRecentOrdersLimit = 20
	MaxRecentOrdersLimit     = 100
)

// OrderFeedService answers the "recent orders" polls clients fall back to
// while the live channel is down.
type OrderFeedService struct {
	orderRepo ports.OrderRepository
	access    ports.ShopAccessService
}

var _ ports.OrderFeedService = (*OrderFeedService)(nil)

// NewOrderFeedService creates a new order feed service
func NewOrderFeedService(orderRepo ports.OrderRepository, access ports.ShopAccessService) *OrderFeedService {
	return &OrderFeedService{orderRepo: orderRepo, access: access}
}

// RecentForShop lists a shop's most recent orders, newest first. The caller
// must be allowed to join the shop's room.
func (s *OrderFeedService) RecentForShop(ctx context.Context, params ports.RecentOrdersParams) ([]*domain.OrderSummary, error) {
	shop, err := s.access.AuthorizeJoin(ctx, params.Identity, params.ShopID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.ListRecentByShop(ctx, shop.ID, ClampLimit(params.Limit))
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.ShopName == "" {
			o.ShopName = shop.Name
		}
	}
	return orders, nil
}

// RecentForBuyer lists the caller's own most recent orders.
func (s *OrderFeedService) RecentForBuyer(ctx context.Context, params ports.RecentOrdersParams) ([]*domain.OrderSummary, error) {
	if !params.Identity.Valid() {
		return nil, apperrors.ErrUnauthorized
	}
	return s.orderRepo.ListRecentByBuyer(ctx, params.Identity.UserID, ClampLimit(params.Limit))
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentOrdersLimit
	case limit > MaxRecentOrdersLimit:
		return MaxRecentOrdersLimit
	}
	return limit
}
