package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// ShopRepository reads shop records owned by the storefront database.
type ShopRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Shop, error)
}

// OrderRepository reads denormalized order snapshots.
type OrderRepository interface {
	GetSummary(ctx context.Context, orderID string) (*domain.OrderSummary, error)
	ListRecentByShop(ctx context.Context, shopID int64, limit int) ([]*domain.OrderSummary, error)
	ListRecentByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]*domain.OrderSummary, error)
}
