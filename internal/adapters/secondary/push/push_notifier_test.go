package push

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

func event(kind domain.EventKind) domain.OrderEvent {
	return domain.NewOrderEvent(kind, domain.OrderSummary{
		ID:          "ORD-7",
		ShopID:      42,
		ShopName:    "Dapur Bu Sari",
		BuyerName:   "Rina",
		TotalAmount: 125000,
		ItemCount:   2,
		Status:      domain.OrderStatusShipped,
		CreatedAt:   time.Now(),
	}, time.Now())
}

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp 0", FormatRupiah(0))
	assert.Equal(t, "Rp 999", FormatRupiah(999))
	assert.Equal(t, "Rp 1.000", FormatRupiah(1000))
	assert.Equal(t, "Rp 125.000", FormatRupiah(125000))
	assert.Equal(t, "Rp 12.345.678", FormatRupiah(12345678))
	assert.Equal(t, "-Rp 5.000", FormatRupiah(-5000))
}

func TestCompose(t *testing.T) {
	msg, ok := Compose(event(domain.EventPaymentConfirmed))
	assert.True(t, ok)
	assert.Equal(t, "Payment confirmed", msg.Title)
	assert.Contains(t, msg.Body, "Rp 125.000")
	assert.Contains(t, msg.Body, "Dapur Bu Sari")

	msg, ok = Compose(event(domain.EventOrderUpdated))
	assert.True(t, ok)
	assert.Contains(t, msg.Body, "shipped")

	_, ok = Compose(event(domain.EventNewOrder))
	assert.False(t, ok)
}

func TestLogNotifier_NotifyOrder(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	n.NotifyOrder(context.Background(), uuid.New(), event(domain.EventShipped))
	assert.Contains(t, buf.String(), "push notification sent")
	assert.Contains(t, buf.String(), "ORD-7")

	buf.Reset()
	n.NotifyOrder(context.Background(), uuid.New(), event(domain.EventNewOrder))
	assert.NotContains(t, buf.String(), "push notification sent")
}
