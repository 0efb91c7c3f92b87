package push

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// Message is the rendered push content for one order event.
type Message struct {
	Title string
	Body  string
}

// LogNotifier is a push adapter that logs the message instead of handing it
// to a push provider.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.PushNotifier = (*LogNotifier)(nil)

// NewLogNotifier creates a logging push notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "push_notifier")}
}

// NotifyOrder runs on its own goroutine and handles its own errors.
func (n *LogNotifier) NotifyOrder(ctx context.Context, userID uuid.UUID, event domain.OrderEvent) {
	msg, ok := Compose(event)
	if !ok {
		n.logger.Debug("no push for event kind", "kind", event.Kind, "order_id", event.Order.ID)
		return
	}

	n.logger.InfoContext(ctx, "push notification sent",
		"user_id", userID,
		"order_id", event.Order.ID,
		"kind", event.Kind,
		"title", msg.Title,
		"body", msg.Body,
	)
}

// Compose renders the buyer-facing push text. new_order only notifies the
// merchant and has no push.
func Compose(event domain.OrderEvent) (Message, bool) {
	order := event.Order
	shop := order.ShopName
	if shop == "" {
		shop = "the shop"
	}

	switch event.Kind {
	case domain.EventPaymentConfirmed:
		return Message{
			Title: "Payment confirmed",
			Body:  fmt.Sprintf("Your payment of %s for order %s was received by %s.", FormatRupiah(order.TotalAmount), order.ID, shop),
		}, true
	case domain.EventProcessing:
		return Message{
			Title: "Order is being prepared",
			Body:  fmt.Sprintf("%s is preparing order %s.", shop, order.ID),
		}, true
	case domain.EventShipped:
		return Message{
			Title: "Order shipped",
			Body:  fmt.Sprintf("Order %s is on its way.", order.ID),
		}, true
	case domain.EventOrderCompleted:
		return Message{
			Title: "Order completed",
			Body:  fmt.Sprintf("Order %s from %s is complete.", order.ID, shop),
		}, true
	case domain.EventOrderUpdated:
		return Message{
			Title: "Order updated",
			Body:  fmt.Sprintf("Order %s is now %s.", order.ID, strings.ToLower(order.Status)),
		}, true
	}
	return Message{}, false
}

// FormatRupiah renders an amount like "Rp 125.000".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
