package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

const dispatchBufferSize = 256

// ErrDispatcherStopped is returned once the hub's Run loop has exited.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// delivery is one encoded event addressed to a room or to a user.
type delivery struct {
	room    domain.RoomKey
	userID  uuid.UUID
	message []byte
	kind    domain.EventKind
	orderID string
}

// Hub owns the live connections and fans order events out to them.
type Hub struct {
	registry *Registry
	access   ports.ShopAccessService

	// conns maps connection ids to connections; users groups them by user
	// so one buyer with several tabs gets every event on each.
	conns map[string]*Connection
	users map[uuid.UUID]map[string]*Connection

	// mu protects conns and users. When both are needed it is taken before
	// the registry lock.
	mu sync.RWMutex

	dispatch chan delivery
	done     chan struct{}
	stopOnce sync.Once

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new hub
func NewHub(access ports.ShopAccessService, logger *slog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		access:   access,
		conns:    make(map[string]*Connection),
		users:    make(map[uuid.UUID]map[string]*Connection),
		dispatch: make(chan delivery, dispatchBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("component", "websocket_hub"),
	}
}

// Registry exposes the membership index, mostly for stats.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's dispatch loop. This MUST be run as a goroutine.
// Cancelling ctx stops the loop and closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stop()
			return
		case d := <-h.dispatch:
			h.deliver(d)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.RLock()
		conns := make([]*Connection, 0, len(h.conns))
		for _, c := range h.conns {
			conns = append(conns, c)
		}
		h.mu.RUnlock()

		for _, c := range conns {
			c.close(websocket.CloseGoingAway, "server shutting down")
			h.Unregister(c.ID)
		}
		h.logger.Info("dispatcher stopped", "closed_connections", len(conns))
	})
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Register admits a connection whose identity has been verified.
func (h *Hub) Register(conn *Connection) error {
	if !conn.Identity.Valid() {
		return apperrors.ErrUnauthorized
	}
	if h.stopped() {
		return ErrDispatcherStopped
	}

	h.mu.Lock()
	if _, exists := h.conns[conn.ID]; exists {
		h.mu.Unlock()
		return apperrors.ErrConnectionDuplicate
	}
	conn.hub = h
	h.conns[conn.ID] = conn
	userConns, ok := h.users[conn.Identity.UserID]
	if !ok {
		userConns = make(map[string]*Connection)
		h.users[conn.Identity.UserID] = userConns
	}
	userConns[conn.ID] = conn
	userTotal := len(userConns)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		"conn_id", conn.ID,
		"user_id", conn.Identity.UserID,
		"role", conn.Identity.Role,
		"user_connections", userTotal,
	)
	return nil
}

// Unregister removes a connection and all of its room memberships. It is
// safe to call more than once.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)
	if userConns, ok := h.users[conn.Identity.UserID]; ok {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(h.users, conn.Identity.UserID)
		}
	}
	rooms := h.registry.RemoveConnection(connID)
	h.mu.Unlock()

	conn.close(websocket.CloseNormalClosure, "")

	h.logger.Info("connection unregistered",
		"conn_id", connID,
		"user_id", conn.Identity.UserID,
		"rooms_left", len(rooms),
	)
}

// JoinShop adds a connection to a shop room once the connection's identity
// is allowed to operate the shop. The outcome is reported to that
// connection only.
func (h *Hub) JoinShop(ctx context.Context, connID string, shopID int64) error {
	conn, ok := h.connection(connID)
	if !ok {
		return apperrors.ErrConnectionNotFound
	}

	shop, err := h.access.AuthorizeJoin(ctx, conn.Identity, shopID)
	if err != nil {
		code, message := joinFailure(err)
		conn.sendError(code, message, shopID)
		h.logger.InfoContext(ctx, "join rejected",
			"conn_id", connID,
			"shop_id", shopID,
			"code", code,
		)
		if code == domain.CodeInternal {
			h.logger.ErrorContext(ctx, "shop authorization failed", "shop_id", shopID, "error", err)
		}
		return err
	}

	room := domain.ShopRoom(shop.ID)
	h.mu.Lock()
	if _, ok := h.conns[connID]; !ok {
		h.mu.Unlock()
		return apperrors.ErrConnectionNotFound
	}
	h.registry.Join(connID, room)
	h.mu.Unlock()

	conn.sendMessage(domain.MsgJoinedShop, domain.JoinedShop{ShopID: shop.ID, ShopName: shop.Name})
	h.logger.DebugContext(ctx, "connection joined room", "conn_id", connID, "room", room.String())
	return nil
}

// LeaveShop removes a connection from a shop room. Leaving a room the
// connection is not in still acknowledges.
func (h *Hub) LeaveShop(connID string, shopID int64) error {
	conn, ok := h.connection(connID)
	if !ok {
		return apperrors.ErrConnectionNotFound
	}
	h.registry.Leave(connID, domain.ShopRoom(shopID))
	conn.sendMessage(domain.MsgLeftShop, domain.ShopRef{ShopID: shopID})
	return nil
}

// EmitToShop queues an event for every connection in the shop's room. An
// empty room is not an error; the event is simply dropped.
func (h *Hub) EmitToShop(shopID int64, event domain.OrderEvent) error {
	if shopID <= 0 {
		return fmt.Errorf("%w: shop id is required", apperrors.ErrInvalidEvent)
	}
	if event.Order.ShopID != shopID {
		return fmt.Errorf("%w: order %s belongs to shop %d, not %d",
			apperrors.ErrInvalidEvent, event.Order.ID, event.Order.ShopID, shopID)
	}
	return h.emit(delivery{room: domain.ShopRoom(shopID)}, event)
}

// EmitToUser queues an event for every connection of the user. Connections
// already joined to the order's shop room are skipped, since the shop emit
// for the same event reaches them.
func (h *Hub) EmitToUser(userID uuid.UUID, event domain.OrderEvent) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", apperrors.ErrInvalidEvent)
	}
	d := delivery{userID: userID}
	if event.Order.ShopID > 0 {
		d.room = domain.ShopRoom(event.Order.ShopID)
	}
	return h.emit(d, event)
}

func (h *Hub) emit(d delivery, event domain.OrderEvent) error {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	msg, err := domain.EncodeEnvelope(event.Kind.WireType(), domain.NewEventPayload(event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	d.message = msg
	d.kind = event.Kind
	d.orderID = event.Order.ID

	if h.stopped() {
		return ErrDispatcherStopped
	}
	select {
	case h.dispatch <- d:
	default:
		h.logger.Warn("dispatch queue full, dropping event",
			"kind", event.Kind,
			"order_id", event.Order.ID,
		)
	}
	return nil
}

// deliver fans one event out to a consistent snapshot of its audience.
func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	var targets []*Connection
	if d.userID != uuid.Nil {
		for _, c := range h.users[d.userID] {
			if d.room.ShopID > 0 && h.registry.IsMember(c.ID, d.room) {
				continue
			}
			targets = append(targets, c)
		}
	} else {
		for _, id := range h.registry.Members(d.room) {
			if c, ok := h.conns[id]; ok {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.logger.Debug("delivering event",
		"kind", d.kind,
		"order_id", d.orderID,
		"connections", len(targets),
	)

	for _, c := range targets {
		if !c.enqueue(d.message) {
			// Slow consumers are dropped and recover through reconnect and polling.
			h.logger.Warn("connection send buffer full, unregistering",
				"conn_id", c.ID,
				"user_id", c.Identity.UserID,
			)
			c.close(websocket.CloseTryAgainLater, "too slow")
			h.Unregister(c.ID)
		}
	}
}

// ExpireUser tells every connection of the user that its session is gone
// and closes them. Clients must not reconnect with the same credential.
func (h *Hub) ExpireUser(userID uuid.UUID) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.users[userID]))
	for _, c := range h.users[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.sendMessage(domain.MsgSessionExpired, nil)
		c.close(domain.CloseSessionInvalid, "session expired")
		h.Unregister(c.ID)
	}
	if len(conns) > 0 {
		h.logger.Info("user sessions expired", "user_id", userID, "connections", len(conns))
	}
	return len(conns)
}

func (h *Hub) connection(connID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	return c, ok
}

func joinFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return domain.CodeForbidden, "you do not operate this shop"
	case errors.Is(err, apperrors.ErrShopNotFound):
		return domain.CodeShopNotFound, "shop not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return domain.CodeUnauthorized, "session is not valid"
	default:
		return domain.CodeInternal, "could not join shop"
	}
}

// --- Stats ---

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
	Queued      int `json:"queued"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Connections: len(h.conns),
		Users:       len(h.users),
		Rooms:       h.registry.RoomCount(),
		Queued:      len(h.dispatch),
	}
}

// ConnectionCount returns the total number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomCount returns the number of rooms with at least one member
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// MembersInShop returns the number of connections in a shop's room
func (h *Hub) MembersInShop(shopID int64) int {
	return h.registry.MemberCount(domain.ShopRoom(shopID))
}

// IsUserConnected checks if a user has any live connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Running reports whether the dispatch loop is still accepting events
func (h *Hub) Running() bool {
	return !h.stopped()
}

// RevokeUser expires the user's connections on this instance.
func (h *Hub) RevokeUser(_ context.Context, userID uuid.UUID) error {
	h.ExpireUser(userID)
	return nil
}

var _ ports.SessionRevoker = (*Hub)(nil)
