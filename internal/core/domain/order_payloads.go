package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayloadUser is the buyer reference embedded in order payloads.
type PayloadUser struct {
	Name string `json:"name"`
}

// OrderPayload matches the order-summary shape shared by live events and the
// recent-orders endpoint.
type OrderPayload struct {
	ID             string      `json:"id"`
	ShopID         int64       `json:"shopId"`
	ShopName       string      `json:"shopName,omitempty"`
	TotalAmount    int64       `json:"totalAmount"`
	ItemCount      int         `json:"itemCount"`
	PaymentStatus  string      `json:"paymentStatus,omitempty"`
	DeliveryStatus string      `json:"deliveryStatus,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      string      `json:"createdAt"`
	User           PayloadUser `json:"user"`
	Timestamp      int64       `json:"_timestamp,omitempty"`
}

// NewOrderPayload builds a payload from a summary. Polling results carry no
// emission timestamp.
func NewOrderPayload(order OrderSummary) OrderPayload {
	return OrderPayload{
		ID:             order.ID,
		ShopID:         order.ShopID,
		ShopName:       order.ShopName,
		TotalAmount:    order.TotalAmount,
		ItemCount:      order.ItemCount,
		PaymentStatus:  order.PaymentStatus,
		DeliveryStatus: order.DeliveryStatus,
		Status:         order.Status,
		CreatedAt:      order.CreatedAt.UTC().Format(time.RFC3339),
		User:           PayloadUser{Name: order.BuyerName},
	}
}

// NewEventPayload builds the live payload for an event.
func NewEventPayload(event OrderEvent) OrderPayload {
	p := NewOrderPayload(event.Order)
	p.Timestamp = event.EmittedAt.UnixMilli()
	return p
}

// Summary converts a payload back into a summary. The buyer id is not part of
// the wire shape and stays nil.
func (p OrderPayload) Summary() OrderSummary {
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return OrderSummary{
		ID:             p.ID,
		ShopID:         p.ShopID,
		ShopName:       p.ShopName,
		BuyerID:        uuid.Nil,
		BuyerName:      p.User.Name,
		TotalAmount:    p.TotalAmount,
		ItemCount:      p.ItemCount,
		PaymentStatus:  p.PaymentStatus,
		DeliveryStatus: p.DeliveryStatus,
		Status:         p.Status,
		CreatedAt:      createdAt,
	}
}

// Event rebuilds an OrderEvent from a live payload and its wire type.
func (p OrderPayload) Event(wireType string) (OrderEvent, bool) {
	kind, ok := KindFromWire(wireType, p.Status)
	if !ok {
		return OrderEvent{}, false
	}
	var emitted time.Time
	if p.Timestamp > 0 {
		emitted = time.UnixMilli(p.Timestamp).UTC()
	}
	return OrderEvent{Kind: kind, Order: p.Summary(), EmittedAt: emitted}, true
}
