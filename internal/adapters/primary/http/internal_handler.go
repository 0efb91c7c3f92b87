package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/adapters/primary/validation"
	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/ports"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

// InternalHandler receives calls from order processing and session issuance.
// Routes are guarded by the internal key middleware.
type InternalHandler struct {
	notifications ports.OrderNotificationService
	revoker       ports.SessionRevoker
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(
	notifications ports.OrderNotificationService,
	revoker ports.SessionRevoker,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *InternalHandler {
	return &InternalHandler{
		notifications: notifications,
		revoker:       revoker,
		errorHandler:  errorHandler,
		logger:        logger.With("component", "internal_handler"),
	}
}

// OrderEventRequest reports an order state transition
type OrderEventRequest struct {
	OrderID string `json:"orderId"`
	Kind    string `json:"kind,omitempty"`
}

// RevokeSessionRequest names the user whose live sessions must end
type RevokeSessionRequest struct {
	UserID string `json:"userId"`
}

// RegisterRoutes mounts under /internal
func (h *InternalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/order-events", h.HandleOrderEvent)
	r.Post("/sessions/revoke", h.HandleRevokeSession)
}

var eventKinds = []string{
	string(domain.EventNewOrder),
	string(domain.EventPaymentConfirmed),
	string(domain.EventProcessing),
	string(domain.EventShipped),
	string(domain.EventOrderCompleted),
	string(domain.EventOrderUpdated),
}

// HandleOrderEvent loads the order snapshot and emits it. The response is
// 202 because delivery to live connections is asynchronous and best-effort.
func (h *InternalHandler) HandleOrderEvent(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[OrderEventRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	v := validation.NewValidator().
		Required("orderId", req.OrderID).
		MaxLength("orderId", req.OrderID, 64).
		Custom("orderId", !strings.ContainsAny(req.OrderID, " \t\r\n"), "Must not contain whitespace").
		OneOf("kind", req.Kind, eventKinds)
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	event, err := h.notifications.PublishTransition(r.Context(), ports.PublishTransitionParams{
		OrderID: req.OrderID,
		Kind:    domain.EventKind(req.Kind),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	logging.LoggerFromContext(r.Context(), h.logger).Debug("order transition accepted",
		"order_id", event.Order.ID,
		"kind", event.Kind,
		"shop_id", event.Order.ShopID,
	)

	WriteJSON(w, http.StatusAccepted, AcceptedResponse{
		Accepted: true,
		Kind:     string(event.Kind),
		OrderID:  event.Order.ID,
	})
}

// HandleRevokeSession closes every live connection of the user.
func (h *InternalHandler) HandleRevokeSession(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[RevokeSessionRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	v := validation.NewValidator().
		Required("userId", req.UserID).
		UUID("userId", req.UserID)
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	userID := uuid.MustParse(req.UserID)
	if HandleError(w, r, h.revoker.RevokeUser(r.Context(), userID), h.errorHandler) {
		return
	}

	WriteNoContent(w)
}
