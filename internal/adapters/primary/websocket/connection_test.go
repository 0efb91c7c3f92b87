package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/mocks"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

// servePumps starts a server that registers every upgraded socket with hub
// under identity and runs its pumps.
func servePumps(t *testing.T, hub *Hub, identity domain.Identity, opts ConnectionOptions) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws, identity, opts, logging.Discard())
		if err := hub.Register(conn); err != nil {
			_ = ws.Close()
			return
		}
		go conn.WritePump()
		go conn.ReadPump(context.Background())
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readEnvelope(t *testing.T, ws *websocket.Conn) domain.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env domain.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestConnection_PumpsEndToEnd(t *testing.T) {
	access := mocks.NewMockShopAccessService()
	hub := NewHub(access, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	identity := seller(42)
	access.On("AuthorizeJoin", mock.Anything, identity, int64(42)).
		Return(&domain.Shop{ID: 42, Name: "Dapur Bu Sri"}, nil)

	client := servePumps(t, hub, identity, DefaultConnectionOptions())

	require.NoError(t, client.WriteJSON(map[string]any{"type": "join_shop", "payload": map[string]any{"shopId": 42}}))
	ack := readEnvelope(t, client)
	assert.Equal(t, domain.MsgJoinedShop, ack.Type)
	assert.JSONEq(t, `{"shopId":42,"shopName":"Dapur Bu Sri"}`, string(ack.Payload))

	require.NoError(t, hub.EmitToShop(42, orderEvent("o1", 42, 50000)))
	env := readEnvelope(t, client)
	assert.Equal(t, "new_order", env.Type)
	assert.Contains(t, string(env.Payload), `"id":"o1"`)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, domain.MsgPong, readEnvelope(t, client).Type)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "join_shop", "payload": map[string]any{"shopId": "x"}}))
	bad := readEnvelope(t, client)
	assert.Equal(t, domain.MsgError, bad.Type)
	assert.Contains(t, string(bad.Payload), domain.CodeBadRequest)

	require.NoError(t, client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0 && hub.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnection_InboundRateLimit(t *testing.T) {
	hub := NewHub(mocks.NewMockShopAccessService(), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	opts := DefaultConnectionOptions()
	opts.InboundRPS = 0.001
	opts.InboundBurst = 1
	client := servePumps(t, hub, seller(1), opts)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, domain.MsgPong, readEnvelope(t, client).Type)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "ping"}))
	limited := readEnvelope(t, client)
	assert.Equal(t, domain.MsgError, limited.Type)
	assert.Contains(t, string(limited.Payload), domain.CodeRateLimited)
}

func TestConnection_SessionExpiredClosesWithCode(t *testing.T) {
	hub := NewHub(mocks.NewMockShopAccessService(), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	identity := seller(1)
	client := servePumps(t, hub, identity, DefaultConnectionOptions())

	require.Eventually(t, func() bool { return hub.IsUserConnected(identity.UserID) }, time.Second, 10*time.Millisecond)
	hub.ExpireUser(identity.UserID)

	assert.Equal(t, domain.MsgSessionExpired, readEnvelope(t, client).Type)

	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, domain.CloseSessionInvalid, closeErr.Code)
}
