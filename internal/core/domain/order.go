package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
)

// Order statuses as stored by the order-processing side.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusPaid       = "PAID"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// OrderSummary is the denormalized order snapshot shared by live events and
// the polling endpoint.
type OrderSummary struct {
	ID             string
	ShopID         int64
	ShopName       string
	BuyerID        uuid.UUID
	BuyerName      string
	TotalAmount    int64
	ItemCount      int
	PaymentStatus  string
	DeliveryStatus string
	Status         string
	CreatedAt      time.Time
}

// EventKind discriminates OrderEvent variants.
type EventKind string

const (
	EventNewOrder         EventKind = "new_order"
	EventPaymentConfirmed EventKind = "payment_confirmed"
	EventProcessing       EventKind = "processing"
	EventShipped          EventKind = "shipped"
	EventOrderCompleted   EventKind = "order_completed"
	EventOrderUpdated     EventKind = "order_updated"
)

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case EventNewOrder, EventPaymentConfirmed, EventProcessing,
		EventShipped, EventOrderCompleted, EventOrderUpdated:
		return true
	}
	return false
}

// WireType is the event name used on the live channel. Processing and
// shipped transitions travel as order_updated with their status.
func (k EventKind) WireType() string {
	switch k {
	case EventNewOrder, EventPaymentConfirmed, EventOrderCompleted:
		return string(k)
	default:
		return string(EventOrderUpdated)
	}
}

// NotifiesBuyer reports whether the buyer's own sessions receive this kind.
// New orders are only interesting to the merchant.
func (k EventKind) NotifiesBuyer() bool {
	return k != EventNewOrder
}

// KindFromWire maps a live-channel event name back to an EventKind.
func KindFromWire(wireType, status string) (EventKind, bool) {
	switch wireType {
	case string(EventNewOrder):
		return EventNewOrder, true
	case string(EventPaymentConfirmed):
		return EventPaymentConfirmed, true
	case string(EventOrderCompleted):
		return EventOrderCompleted, true
	case string(EventOrderUpdated):
		switch strings.ToUpper(status) {
		case OrderStatusProcessing:
			return EventProcessing, true
		case OrderStatusShipped:
			return EventShipped, true
		}
		return EventOrderUpdated, true
	}
	return "", false
}

// OrderEvent is emitted on an order state change. It carries a full snapshot
// so clients never need a follow-up fetch to render it.
type OrderEvent struct {
	Kind      EventKind
	Order     OrderSummary
	EmittedAt time.Time
}

// NewOrderEvent builds an event stamped with the given emission time.
func NewOrderEvent(kind EventKind, order OrderSummary, now time.Time) OrderEvent {
	return OrderEvent{Kind: kind, Order: order, EmittedAt: now.UTC()}
}

// Validate checks the event is complete enough to be broadcast.
func (e OrderEvent) Validate() error {
	switch {
	case !e.Kind.IsValid():
		return fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidEvent, e.Kind)
	case strings.TrimSpace(e.Order.ID) == "":
		return fmt.Errorf("%w: order id is required", apperrors.ErrInvalidEvent)
	case e.Order.ShopID <= 0:
		return fmt.Errorf("%w: shop id is required", apperrors.ErrInvalidEvent)
	case strings.TrimSpace(e.Order.BuyerName) == "":
		return fmt.Errorf("%w: buyer name is required", apperrors.ErrInvalidEvent)
	case e.Order.TotalAmount < 0:
		return fmt.Errorf("%w: total amount must not be negative", apperrors.ErrInvalidEvent)
	case e.Order.ItemCount < 0:
		return fmt.Errorf("%w: item count must not be negative", apperrors.ErrInvalidEvent)
	case strings.TrimSpace(e.Order.Status) == "":
		return fmt.Errorf("%w: status is required", apperrors.ErrInvalidEvent)
	case e.EmittedAt.IsZero():
		return fmt.Errorf("%w: emission timestamp is required", apperrors.ErrInvalidEvent)
	}
	return nil
}

// KindForStatus picks the event kind that announces an order reaching status.
func KindForStatus(status string) (EventKind, error) {
	switch strings.ToUpper(status) {
	case OrderStatusPending:
		return EventNewOrder, nil
	case OrderStatusPaid:
		return EventPaymentConfirmed, nil
	case OrderStatusProcessing:
		return EventProcessing, nil
	case OrderStatusShipped:
		return EventShipped, nil
	case OrderStatusCompleted:
		return EventOrderCompleted, nil
	case OrderStatusCancelled:
		return EventOrderUpdated, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidTransition, status)
}
