package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKey(t *testing.T) {
	assert.Equal(t, "shop:42", ShopRoom(42).String())
	assert.Equal(t, ShopRoom(42), ShopRoom(42))
	assert.NotEqual(t, ShopRoom(4), ShopRoom(42))

	key, err := ParseRoomKey("shop:42")
	require.NoError(t, err)
	assert.Equal(t, ShopRoom(42), key)

	for _, bad := range []string{"", "shop", "shop:", "shop:-1", "shop:abc", "user:42", "shop:0"} {
		_, err := ParseRoomKey(bad)
		assert.ErrorIs(t, err, ErrInvalidRoomKey, bad)
	}
}

func TestIdentity(t *testing.T) {
	seller := Identity{UserID: uuid.New(), Role: RoleSeller, ShopID: 42}
	assert.True(t, seller.Valid())
	assert.True(t, seller.OperatesShop(42))
	assert.False(t, seller.OperatesShop(43))

	buyer := Identity{UserID: uuid.New(), Role: RoleBuyer}
	assert.True(t, buyer.Valid())
	assert.False(t, buyer.OperatesShop(0))

	assert.False(t, Identity{Role: RoleSeller}.Valid())
	assert.False(t, Identity{UserID: uuid.New(), Role: "owner"}.Valid())
}
