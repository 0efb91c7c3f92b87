package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/axondapurkita/order-notify/internal/adapters/primary/http/middleware"
	"github.com/axondapurkita/order-notify/internal/adapters/primary/validation"
	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// OrdersHandler serves the recent-orders feeds polled while the live
// channel is unavailable.
type OrdersHandler struct {
	feed         ports.OrderFeedService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(feed ports.OrderFeedService, errorHandler *ErrorHandler, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		feed:         feed,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterShopRoutes mounts under /shops
func (h *OrdersHandler) RegisterShopRoutes(r chi.Router) {
	r.Get("/{shopID}/orders/recent", h.HandleShopRecent)
}

// RegisterMeRoutes mounts under /me
func (h *OrdersHandler) RegisterMeRoutes(r chi.Router) {
	r.Get("/orders/recent", h.HandleBuyerRecent)
}

// HandleShopRecent lists the most recent orders of a shop the caller operates.
func (h *OrdersHandler) HandleShopRecent(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	shopID, err := validation.ParseIDParam(r, "shopID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	orders, err := h.feed.RecentForShop(r.Context(), ports.RecentOrdersParams{
		Identity: identity,
		ShopID:   shopID,
		Limit:    validation.ParseIntQueryParam(r, "limit", 0),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toPayloads(orders))
}

// HandleBuyerRecent lists the caller's own most recent orders.
func (h *OrdersHandler) HandleBuyerRecent(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	orders, err := h.feed.RecentForBuyer(r.Context(), ports.RecentOrdersParams{
		Identity: identity,
		Limit:    validation.ParseIntQueryParam(r, "limit", 0),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toPayloads(orders))
}

func toPayloads(orders []*domain.OrderSummary) []domain.OrderPayload {
	out := make([]domain.OrderPayload, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, domain.NewOrderPayload(*o))
	}
	return out
}
