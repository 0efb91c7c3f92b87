package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

type ShopRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ShopRepository = (*ShopRepository)(nil)

func NewShopRepository(pool *pgxpool.Pool) *ShopRepository {
	return &ShopRepository{pool: pool}
}

const getShopByID = `
SELECT id, name, owner_id
FROM shops
WHERE id = $1`

func (r *ShopRepository) GetByID(ctx context.Context, id int64) (*domain.Shop, error) {
	var shop domain.Shop
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, getShopByID, id).Scan(&shop.ID, &shop.Name, &shop.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get shop %d: %w", id, err)
	}
	return &shop, nil
}
