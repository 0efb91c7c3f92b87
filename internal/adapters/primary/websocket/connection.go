package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// ConnectionOptions tunes a single live connection.
type ConnectionOptions struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int64
	// Outbound queue length. A connection whose queue is full is dropped.
	SendBuffer int
	// Inbound message rate per connection.
	InboundRPS   float64
	InboundBurst int
}

// DefaultConnectionOptions returns the stock connection settings
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     256,
		InboundRPS:     5,
		InboundBurst:   10,
	}
}

// Connection is one live channel between a client and the hub. The hub owns
// it from Register until Unregister; rooms only reference it by ID.
type Connection struct {
	ID        string
	Identity  domain.Identity
	CreatedAt time.Time

	hub     *Hub
	ws      *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	opts    ConnectionOptions
	logger  *slog.Logger

	done        chan struct{}
	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

// NewConnection wraps an upgraded socket. ws may be nil when the connection
// is driven without pumps.
func NewConnection(ws *websocket.Conn, identity domain.Identity, opts ConnectionOptions, logger *slog.Logger) *Connection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultConnectionOptions().SendBuffer
	}
	limit := rate.Inf
	if opts.InboundRPS > 0 {
		limit = rate.Limit(opts.InboundRPS)
	}

	id := uuid.NewString()
	return &Connection{
		ID:        id,
		Identity:  identity,
		CreatedAt: time.Now().UTC(),
		ws:        ws,
		send:      make(chan []byte, opts.SendBuffer),
		limiter:   rate.NewLimiter(limit, max(opts.InboundBurst, 1)),
		opts:      opts,
		logger:    logger.With("conn_id", id, "user_id", identity.UserID.String()),
		done:      make(chan struct{}),
	}
}

// Send exposes the outbound queue.
func (c *Connection) Send() <-chan []byte {
	return c.send
}

// Done is closed once the connection has been closed by the hub.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// enqueue queues an encoded message without blocking. It fails when the
// connection is closed or its queue is full.
func (c *Connection) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Connection) sendMessage(msgType string, payload any) bool {
	msg, err := domain.EncodeEnvelope(msgType, payload)
	if err != nil {
		c.logger.Error("failed to encode message", "type", msgType, "error", err)
		return false
	}
	return c.enqueue(msg)
}

func (c *Connection) sendError(code, message string, shopID int64) {
	c.sendMessage(domain.MsgError, domain.ErrorMessage{Code: code, Message: message, ShopID: shopID})
}

// close marks the connection closed. The first caller decides the close
// frame the write pump sends.
func (c *Connection) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Connection) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c.ID)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleIncoming(ctx, message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-c.done:
			c.flush()
			frame := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			if err := c.write(websocket.CloseMessage, frame); err != nil {
				c.logger.Debug("failed to send close message", "error", err)
			}
			return

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// flush writes whatever is still queued, e.g. a session_expired notice
// queued right before the close.
func (c *Connection) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// handleIncoming processes one client message
func (c *Connection) handleIncoming(ctx context.Context, raw []byte) {
	if !c.limiter.Allow() {
		c.sendError(domain.CodeRateLimited, "too many messages", 0)
		return
	}

	var msg domain.Envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.sendError(domain.CodeBadRequest, "malformed message", 0)
		return
	}

	switch msg.Type {
	case domain.MsgJoinShop:
		ref, ok := c.parseShopRef(msg.Payload)
		if !ok {
			return
		}
		// Failures are reported to this connection by the hub.
		_ = c.hub.JoinShop(ctx, c.ID, ref.ShopID)

	case domain.MsgLeaveShop:
		ref, ok := c.parseShopRef(msg.Payload)
		if !ok {
			return
		}
		_ = c.hub.LeaveShop(c.ID, ref.ShopID)

	case domain.MsgPing:
		c.sendMessage(domain.MsgPong, nil)

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Connection) parseShopRef(payload json.RawMessage) (domain.ShopRef, bool) {
	var ref domain.ShopRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.ShopID <= 0 {
		c.sendError(domain.CodeBadRequest, "shopId must be a positive integer", 0)
		return ref, false
	}
	return ref, true
}
