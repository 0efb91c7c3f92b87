package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// OrderRepository reads denormalized order summaries. Writes belong to
// order processing.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderSummaryColumns = `
	o.id, o.shop_id, s.name, o.buyer_id, u.name,
	o.total_amount,
	(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id),
	o.payment_status, o.delivery_status, o.status, o.created_at`

const orderSummaryFrom = `
FROM orders o
JOIN shops s ON s.id = o.shop_id
JOIN users u ON u.id = o.buyer_id`

const getOrderSummary = `SELECT` + orderSummaryColumns + orderSummaryFrom + `
WHERE o.id = $1`

// id breaks created_at ties so pages are stable.
const listRecentByShop = `SELECT` + orderSummaryColumns + orderSummaryFrom + `
WHERE o.shop_id = $1
ORDER BY o.created_at DESC, o.id DESC
LIMIT $2`

const listRecentByBuyer = `SELECT` + orderSummaryColumns + orderSummaryFrom + `
WHERE o.buyer_id = $1
ORDER BY o.created_at DESC, o.id DESC
LIMIT $2`

func scanOrderSummary(row pgx.Row) (*domain.OrderSummary, error) {
	var (
		o         domain.OrderSummary
		itemCount int64
	)
	err := row.Scan(
		&o.ID, &o.ShopID, &o.ShopName, &o.BuyerID, &o.BuyerName,
		&o.TotalAmount,
		&itemCount,
		&o.PaymentStatus, &o.DeliveryStatus, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.ItemCount = int(itemCount)
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func (r *OrderRepository) GetSummary(ctx context.Context, orderID string) (*domain.OrderSummary, error) {
	o, err := scanOrderSummary(GetDBTX(ctx, r.pool).QueryRow(ctx, getOrderSummary, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get order summary %s: %w", orderID, err)
	}
	return o, nil
}

func (r *OrderRepository) ListRecentByShop(ctx context.Context, shopID int64, limit int) ([]*domain.OrderSummary, error) {
	return r.list(ctx, listRecentByShop, shopID, limit)
}

func (r *OrderRepository) ListRecentByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]*domain.OrderSummary, error) {
	return r.list(ctx, listRecentByBuyer, buyerID, limit)
}

func (r *OrderRepository) list(ctx context.Context, query string, key any, limit int) ([]*domain.OrderSummary, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.OrderSummary, 0, limit)
	for rows.Next() {
		o, err := scanOrderSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order summary: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
