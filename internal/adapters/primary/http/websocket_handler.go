package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	mw "github.com/axondapurkita/order-notify/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/axondapurkita/order-notify/internal/adapters/primary/websocket"
	"github.com/axondapurkita/order-notify/internal/core/ports"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

// WebSocketHandler authenticates and upgrades live notification channels
type WebSocketHandler struct {
	hub        *wsAdapter.Hub
	verifier   ports.SessionVerifier
	cookieName string
	opts       wsAdapter.ConnectionOptions
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// WebSocketConfig holds configuration for the WebSocket handler
type WebSocketConfig struct {
	CookieName      string
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	AllowAllOrigins bool
	Connection      wsAdapter.ConnectionOptions
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	verifier ports.SessionVerifier,
	cfg WebSocketConfig,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:        hub,
		verifier:   verifier,
		cookieName: cfg.CookieName,
		opts:       cfg.Connection,
		logger:     logger.With("component", "websocket_handler"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg WebSocketConfig) func(r *http.Request) bool {
	allowedOrigins := cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if cfg.AllowAllOrigins {
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			allowed = strings.TrimPrefix(strings.TrimPrefix(allowed, "https://"), "http://")
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:]
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
		)
		return false
	}
}

// ServeHTTP verifies the session cookie, upgrades, and hands the connection
// to the hub. An invalid session is answered with 401 before the upgrade so
// clients can tell it apart from a network failure.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context(), h.logger)

	credential := mw.SessionCredential(r, h.cookieName)
	if credential == "" {
		logger.Warn("websocket connection rejected: missing session", "remote_addr", r.RemoteAddr)
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(r.Context(), credential)
	if err != nil {
		logger.Warn("websocket connection rejected: invalid session",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the HTTP error.
		logger.Warn("failed to upgrade websocket connection",
			"user_id", identity.UserID,
			"error", err,
		)
		return
	}

	conn := wsAdapter.NewConnection(ws, identity, h.opts, h.logger)
	if err := h.hub.Register(conn); err != nil {
		logger.Warn("websocket registration refused", "user_id", identity.UserID, "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "unavailable"),
			time.Now().Add(h.opts.WriteWait))
		_ = ws.Close()
		return
	}

	logger.Info("websocket connection established",
		"conn_id", conn.ID,
		"user_id", identity.UserID,
		"role", identity.Role,
		"remote_addr", r.RemoteAddr,
	)

	// The request context ends when ServeHTTP returns; keep its values only.
	ctx := logging.WithConnID(context.WithoutCancel(r.Context()), conn.ID)
	go conn.WritePump()
	go conn.ReadPump(ctx)
}
