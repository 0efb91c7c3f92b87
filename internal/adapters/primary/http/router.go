package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/axondapurkita/order-notify/internal/adapters/primary/http/middleware"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// RouterConfig wires handlers and middleware into the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Verifier    ports.SessionVerifier
	CookieName  string
	InternalKey string
	CORSOrigins []string

	// Optional limiters; nil disables limiting for that group.
	GeneralLimiter *mw.RateLimiter
	PollLimiter    *mw.RateLimiter

	Health    *HealthHandler
	WebSocket *WebSocketHandler
	Orders    *OrdersHandler
	Internal  *InternalHandler
}

// NewRouter builds the chi router for the API binary
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Probe paths stay outside /api/v1 and outside rate limiting.
	cfg.Health.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.GeneralLimiter != nil {
			r.Use(cfg.GeneralLimiter.Middleware)
		}

		// The websocket handler authenticates before the upgrade itself.
		r.Get("/ws", cfg.WebSocket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mw.SessionMiddleware(cfg.Verifier, cfg.CookieName))
			if cfg.PollLimiter != nil {
				r.Use(cfg.PollLimiter.Middleware)
			}
			r.Route("/shops", cfg.Orders.RegisterShopRoutes)
			r.Route("/me", cfg.Orders.RegisterMeRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireInternalKey(cfg.InternalKey))
			r.Route("/internal", cfg.Internal.RegisterRoutes)
		})
	})

	return r
}
