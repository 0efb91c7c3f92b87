package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// SessionVerifier resolves the opaque session credential into an identity.
type SessionVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// ShopAccessService decides whether an identity operates a shop.
type ShopAccessService interface {
	AuthorizeJoin(ctx context.Context, identity domain.Identity, shopID int64) (*domain.Shop, error)
}

// RecentOrdersParams defines the input for the polling feeds.
type RecentOrdersParams struct {
	Identity domain.Identity
	ShopID   int64
	Limit    int
}

// OrderFeedService serves the polling fallback.
type OrderFeedService interface {
	RecentForShop(ctx context.Context, params RecentOrdersParams) ([]*domain.OrderSummary, error)
	RecentForBuyer(ctx context.Context, params RecentOrdersParams) ([]*domain.OrderSummary, error)
}

// PublishTransitionParams describes an order state change reported by order
// processing. Kind may be empty, in which case it is derived from the
// order's current status.
type PublishTransitionParams struct {
	OrderID string
	Kind    domain.EventKind
}

// OrderNotificationService turns order transitions into live events.
type OrderNotificationService interface {
	PublishTransition(ctx context.Context, params PublishTransitionParams) (*domain.OrderEvent, error)
	Shutdown()
}

// EventBroadcaster delivers events to live connections.
type EventBroadcaster interface {
	EmitToShop(shopID int64, event domain.OrderEvent) error
	EmitToUser(userID uuid.UUID, event domain.OrderEvent) error
}

// PushNotifier sends an out-of-band push for buyer-facing transitions.
type PushNotifier interface {
	NotifyOrder(ctx context.Context, userID uuid.UUID, event domain.OrderEvent)
}

// SessionRevoker ends the live connections of a user whose session is gone.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}
