package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWatch(t *testing.T) {
	t.Setenv("ORDERWATCH_SESSION", "token")
	t.Setenv("ORDERWATCH_API_URL", "https://api.dapurkita.id/")
	t.Setenv("ORDERWATCH_SHOP_ID", "42")

	cfg, err := LoadWatch()
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.ShopID)
	assert.Equal(t, 20*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 10, cfg.MaxReconnectAttempts)
	assert.Equal(t, "wss://api.dapurkita.id/api/v1/ws", cfg.LiveURL())
	assert.Equal(t, "https://api.dapurkita.id/api/v1/shops/42/orders/recent", cfg.RecentOrdersURL())
}

func TestWatchConfig_BuyerFeed(t *testing.T) {
	cfg := &WatchConfig{APIURL: "http://localhost:8080", Cookie: "token", PollLimit: 20}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://localhost:8080/api/v1/ws", cfg.LiveURL())
	assert.Equal(t, "http://localhost:8080/api/v1/me/orders/recent", cfg.RecentOrdersURL())
}

func TestWatchConfig_Validate(t *testing.T) {
	cfg := &WatchConfig{APIURL: "ftp://x", PollLimit: 500}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDERWATCH_SESSION is required")
	assert.Contains(t, err.Error(), "ORDERWATCH_API_URL")
	assert.Contains(t, err.Error(), "ORDERWATCH_POLL_LIMIT")
}
