// Command orderwatch follows a shop's (or a buyer's) orders from the
// terminal, using the live channel and falling back to polling.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axondapurkita/order-notify/internal/adapters/secondary/push"
	"github.com/axondapurkita/order-notify/internal/config"
	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
	"github.com/axondapurkita/order-notify/internal/realtime/client"
)

func main() {
	cfg, err := config.LoadWatch()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: "orderwatch",
	})

	clientCfg := client.DefaultConfig()
	clientCfg.HandshakeTimeout = cfg.HandshakeTimeout
	clientCfg.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	clientCfg.PollingStartDelay = cfg.PollingStartDelay

	c := client.New(clientCfg,
		client.NewWSDialer(cfg.LiveURL(), cfg.CookieName, cfg.Cookie, cfg.ShopID),
		client.NewHTTPFetcher(cfg.RecentOrdersURL(), cfg.CookieName, cfg.Cookie, cfg.PollLimit),
		nil,
		logger,
	)

	out := logger.With("component", "orderwatch")

	c.SetHandler(func(e domain.OrderEvent) {
		msg, ok := push.Compose(e)
		if !ok {
			msg = push.Message{
				Title: "Pesanan baru",
				Body:  e.Order.ID + " dari " + e.Order.BuyerName + " " + push.FormatRupiah(e.Order.TotalAmount),
			}
		}
		out.Info(msg.Title,
			"detail", msg.Body,
			"kind", e.Kind,
			"order_id", e.Order.ID,
			"status", e.Order.Status,
			"items", e.Order.ItemCount,
		)
	})

	done := make(chan struct{})
	c.SetStatusHandler(func(s client.Status) {
		attrs := []any{"status", s.String(), "reconnects", c.ReconnectCount()}
		if err := c.LastError(); err != nil {
			attrs = append(attrs, "last_error", err.Error())
		}
		out.Info("connection status", attrs...)
		if s == client.StatusDisconnected {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	c.SetSyncHandler(func(orders []domain.OrderSummary, at time.Time) {
		latest := ""
		if len(orders) > 0 {
			latest = orders[0].ID
		}
		out.Info("polled recent orders", "count", len(orders), "latest", latest, "last_sync", at)
	})

	if err := c.Start(); err != nil {
		out.Error("failed to start client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	select {
	case <-ctx.Done():
	case <-done:
		out.Error("session rejected, stopping", "error", c.LastError())
		exitCode = 1
	}

	if err := c.Close(); err != nil {
		out.Error("failed to close client", "error", err)
	}
	os.Exit(exitCode)
}
