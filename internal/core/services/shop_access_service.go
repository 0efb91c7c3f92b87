package services

import (
	"context"
	"errors"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// ShopAccessService decides which identities may watch a shop's orders.
type ShopAccessService struct {
	shopRepo ports.ShopRepository
}

var _ ports.ShopAccessService = (*ShopAccessService)(nil)

// NewShopAccessService creates a new shop access service
func NewShopAccessService(shopRepo ports.ShopRepository) *ShopAccessService {
	return &ShopAccessService{shopRepo: shopRepo}
}

// AuthorizeJoin returns the shop when the identity operates it. Sellers are
// admitted by their session shop binding or by shop ownership; admins may
// watch any shop.
func (s *ShopAccessService) AuthorizeJoin(ctx context.Context, identity domain.Identity, shopID int64) (*domain.Shop, error) {
	if !identity.Valid() {
		return nil, apperrors.ErrUnauthorized
	}
	if shopID <= 0 {
		return nil, apperrors.ErrShopNotFound
	}
	if identity.Role == domain.RoleBuyer {
		return nil, apperrors.ErrForbidden
	}

	shop, err := s.shopRepo.GetByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrShopNotFound
		}
		return nil, err
	}

	switch {
	case identity.Role == domain.RoleAdmin:
		return shop, nil
	case identity.OperatesShop(shop.ID):
		return shop, nil
	case shop.OwnerID == identity.UserID:
		return shop, nil
	}

	return nil, apperrors.ErrForbidden
}
