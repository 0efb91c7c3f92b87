package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

var (
	// ErrSessionInvalid means the session credential was refused. The client
	// must not retry with it.
	ErrSessionInvalid = errors.New("session is no longer valid")

	// ErrClosed is returned by operations on a torn-down client.
	ErrClosed = errors.New("client closed")
)

// JoinError is a join_shop rejection from the dispatcher.
type JoinError struct {
	Code    string
	Message string
	ShopID  int64
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join shop %d rejected: %s (%s)", e.ShopID, e.Message, e.Code)
}

// Channel is an established live channel.
type Channel interface {
	// Next blocks for the next envelope. Errors end the channel.
	Next() (domain.Envelope, error)
	Close() error
}

// Dialer performs the live handshake, including the room join when one is
// configured. It must honour ctx for its whole duration.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// WSDialer dials the dispatcher over websocket using the session cookie.
type WSDialer struct {
	URL         string
	CookieName  string
	Cookie      string
	ShopID      int64
	ReadTimeout time.Duration

	dialer *websocket.Dialer
}

// NewWSDialer creates a websocket dialer. shopID 0 skips the room join.
func NewWSDialer(url, cookieName, cookie string, shopID int64) *WSDialer {
	return &WSDialer{
		URL:         url,
		CookieName:  cookieName,
		Cookie:      cookie,
		ShopID:      shopID,
		ReadTimeout: 70 * time.Second,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 0, // bounded by ctx
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

var _ Dialer = (*WSDialer)(nil)

// Dial connects and, when a shop is configured, waits for joined_shop.
func (d *WSDialer) Dial(ctx context.Context) (Channel, error) {
	header := http.Header{}
	if d.Cookie != "" {
		header.Set("Cookie", (&http.Cookie{Name: d.CookieName, Value: d.Cookie}).String())
	}

	conn, resp, err := d.dialer.DialContext(ctx, d.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	ch := newWSChannel(conn, d.ReadTimeout)
	if d.ShopID <= 0 {
		return ch, nil
	}

	if err := ch.join(ctx, d.ShopID); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

type wsChannel struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	writeMu     sync.Mutex
	closeOnce   sync.Once
}

func newWSChannel(conn *websocket.Conn, readTimeout time.Duration) *wsChannel {
	c := &wsChannel{conn: conn, readTimeout: readTimeout}
	conn.SetPingHandler(func(data string) error {
		c.extendDeadline()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	c.extendDeadline()
	return c
}

func (c *wsChannel) extendDeadline() {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func (c *wsChannel) send(msgType string, payload any) error {
	data, err := domain.EncodeEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsChannel) join(ctx context.Context, shopID int64) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	if err := c.send(domain.MsgJoinShop, domain.ShopRef{ShopID: shopID}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	for {
		env, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("join shop %d: %w", shopID, ctx.Err())
			}
			return fmt.Errorf("join shop %d: %w", shopID, err)
		}

		switch env.Type {
		case domain.MsgJoinedShop:
			var ack domain.JoinedShop
			if err := json.Unmarshal(env.Payload, &ack); err == nil && ack.ShopID == shopID {
				c.extendDeadline()
				return nil
			}
		case domain.MsgError:
			var e domain.ErrorMessage
			_ = json.Unmarshal(env.Payload, &e)
			if e.ShopID == 0 || e.ShopID == shopID {
				return &JoinError{Code: e.Code, Message: e.Message, ShopID: shopID}
			}
		case domain.MsgSessionExpired:
			return ErrSessionInvalid
		}
	}
}

func (c *wsChannel) Next() (domain.Envelope, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, domain.CloseSessionInvalid) {
				return domain.Envelope{}, ErrSessionInvalid
			}
			return domain.Envelope{}, err
		}
		c.extendDeadline()

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			// Unknown frames are skipped.
			continue
		}
		return env, nil
	}
}

// Close sends a normal close frame and closes the socket. Safe to call more
// than once and concurrently with Next.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
