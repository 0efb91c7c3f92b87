package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// WatchConfig configures the orderwatch client binary.
type WatchConfig struct {
	APIURL     string
	ShopID     int64
	Cookie     string
	CookieName string
	PollLimit  int

	HandshakeTimeout     time.Duration
	MaxReconnectAttempts int
	PollingStartDelay    time.Duration

	Logging LoggingConfig
}

// LoadWatch reads ORDERWATCH_* variables, loading .env first if present.
func LoadWatch() (*WatchConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &WatchConfig{
		APIURL:               getEnvOrDefault("ORDERWATCH_API_URL", "http://localhost:8080"),
		ShopID:               int64(getIntOrDefault("ORDERWATCH_SHOP_ID", 0)),
		Cookie:               os.Getenv("ORDERWATCH_SESSION"),
		CookieName:           getEnvOrDefault("SESSION_COOKIE_NAME", "dk_session"),
		PollLimit:            getIntOrDefault("ORDERWATCH_POLL_LIMIT", 20),
		HandshakeTimeout:     getDurationOrDefault("ORDERWATCH_HANDSHAKE_TIMEOUT", 20*time.Second),
		MaxReconnectAttempts: getIntOrDefault("ORDERWATCH_MAX_RECONNECTS", 10),
		PollingStartDelay:    getDurationOrDefault("ORDERWATCH_POLLING_DELAY", 5*time.Second),
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the watcher configuration
func (c *WatchConfig) Validate() error {
	var errs []string

	if c.Cookie == "" {
		errs = append(errs, "ORDERWATCH_SESSION is required")
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "ORDERWATCH_API_URL must be an http(s) URL")
	}
	if c.ShopID < 0 {
		errs = append(errs, "ORDERWATCH_SHOP_ID must not be negative")
	}
	if c.PollLimit <= 0 || c.PollLimit > 100 {
		errs = append(errs, "ORDERWATCH_POLL_LIMIT must be between 1 and 100")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// LiveURL is the websocket endpoint derived from APIURL.
func (c *WatchConfig) LiveURL() string {
	u, _ := url.Parse(strings.TrimRight(c.APIURL, "/"))
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/v1/ws"
	return u.String()
}

// RecentOrdersURL is the polling endpoint: the shop feed when a shop is
// configured, otherwise the caller's own orders.
func (c *WatchConfig) RecentOrdersURL() string {
	base := strings.TrimRight(c.APIURL, "/")
	if c.ShopID > 0 {
		return fmt.Sprintf("%s/api/v1/shops/%d/orders/recent", base, c.ShopID)
	}
	return base + "/api/v1/me/orders/recent"
}
