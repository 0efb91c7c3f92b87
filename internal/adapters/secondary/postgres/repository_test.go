package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
)

type fixture struct {
	sellerID uuid.UUID
	buyerID  uuid.UUID
	shopID   int64
}

func seedShop(t *testing.T, ctx context.Context, name string) fixture {
	t.Helper()
	f := fixture{sellerID: uuid.New(), buyerID: uuid.New()}

	tm := NewTransactionManager(testPool)
	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, testPool)
		if _, err := db.Exec(ctx, `INSERT INTO users (id, name, role) VALUES ($1, 'Sari', 'seller'), ($2, 'Rina', 'buyer')`,
			f.sellerID, f.buyerID); err != nil {
			return err
		}
		return db.QueryRow(ctx, `INSERT INTO shops (name, owner_id) VALUES ($1, $2) RETURNING id`,
			name, f.sellerID).Scan(&f.shopID)
	})
	require.NoError(t, err)
	return f
}

func seedOrder(t *testing.T, ctx context.Context, f fixture, id string, createdAt time.Time, items int) {
	t.Helper()
	_, err := testPool.Exec(ctx, `
		INSERT INTO orders (id, shop_id, buyer_id, total_amount, payment_status, status, created_at)
		VALUES ($1, $2, $3, $4, 'PAID', 'PAID', $5)`,
		id, f.shopID, f.buyerID, int64(items)*15000, createdAt)
	require.NoError(t, err)

	for i := 0; i < items; i++ {
		_, err := testPool.Exec(ctx,
			`INSERT INTO order_items (order_id, product_name, quantity, unit_price) VALUES ($1, $2, 1, 15000)`,
			id, fmt.Sprintf("Nasi Box %d", i))
		require.NoError(t, err)
	}
}

func TestShopRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewShopRepository(testPool)
	f := seedShop(t, ctx, "Dapur Bu Sari")

	shop, err := repo.GetByID(ctx, f.shopID)
	require.NoError(t, err)
	assert.Equal(t, "Dapur Bu Sari", shop.Name)
	assert.Equal(t, f.sellerID, shop.OwnerID)

	_, err = repo.GetByID(ctx, 9_999_999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_GetSummary(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	f := seedShop(t, ctx, "Warung Pak Budi")

	orderID := "ORD-" + uuid.NewString()[:8]
	created := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	seedOrder(t, ctx, f, orderID, created, 3)

	o, err := repo.GetSummary(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, f.shopID, o.ShopID)
	assert.Equal(t, "Warung Pak Budi", o.ShopName)
	assert.Equal(t, f.buyerID, o.BuyerID)
	assert.Equal(t, "Rina", o.BuyerName)
	assert.Equal(t, int64(45000), o.TotalAmount)
	assert.Equal(t, 3, o.ItemCount)
	assert.Equal(t, "PAID", o.PaymentStatus)
	assert.Equal(t, "PENDING", o.DeliveryStatus)
	assert.True(t, created.Equal(o.CreatedAt))

	_, err = repo.GetSummary(ctx, "ORD-missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestOrderRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	f := seedShop(t, ctx, "Kedai Kopi Nusantara")
	other := seedShop(t, ctx, "Toko Sebelah")

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	prefix := uuid.NewString()[:6]
	for i := 0; i < 5; i++ {
		seedOrder(t, ctx, f, fmt.Sprintf("%s-%d", prefix, i), base.Add(time.Duration(i)*time.Hour), 1)
	}
	seedOrder(t, ctx, other, prefix+"-other", base.Add(10*time.Hour), 1)

	t.Run("by shop newest first", func(t *testing.T) {
		orders, err := repo.ListRecentByShop(ctx, f.shopID, 3)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, prefix+"-4", orders[0].ID)
		assert.Equal(t, prefix+"-3", orders[1].ID)
		assert.Equal(t, prefix+"-2", orders[2].ID)
		for _, o := range orders {
			assert.Equal(t, f.shopID, o.ShopID)
		}
	})

	t.Run("by buyer", func(t *testing.T) {
		orders, err := repo.ListRecentByBuyer(ctx, f.buyerID, 20)
		require.NoError(t, err)
		assert.Len(t, orders, 5)
	})

	t.Run("empty", func(t *testing.T) {
		orders, err := repo.ListRecentByBuyer(ctx, uuid.New(), 20)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestTransactionManager_Rollback(t *testing.T) {
	ctx := context.Background()
	tm := NewTransactionManager(testPool)
	id := uuid.New()

	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := GetDBTX(ctx, testPool).Exec(ctx,
			`INSERT INTO users (id, name) VALUES ($1, 'Ghost')`, id); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	var count int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id = $1`, id).Scan(&count))
	assert.Zero(t, count)
}
