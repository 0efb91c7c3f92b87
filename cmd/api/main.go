package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/axondapurkita/order-notify/internal/adapters/primary/http"
	mw "github.com/axondapurkita/order-notify/internal/adapters/primary/http/middleware"
	"github.com/axondapurkita/order-notify/internal/adapters/primary/kafka"
	"github.com/axondapurkita/order-notify/internal/adapters/primary/websocket"
	"github.com/axondapurkita/order-notify/internal/adapters/secondary/postgres"
	"github.com/axondapurkita/order-notify/internal/adapters/secondary/push"
	"github.com/axondapurkita/order-notify/internal/adapters/secondary/redisbus"
	"github.com/axondapurkita/order-notify/internal/auth"
	"github.com/axondapurkita/order-notify/internal/config"
	"github.com/axondapurkita/order-notify/internal/core/ports"
	"github.com/axondapurkita/order-notify/internal/core/services"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Database
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Repositories and core services
	shopRepo := postgres.NewShopRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	shopAccess := services.NewShopAccessService(shopRepo)
	orderFeed := services.NewOrderFeedService(orderRepo, shopAccess)

	// 5. Event dispatcher
	hub := websocket.NewHub(shopAccess, logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	var (
		broadcaster ports.EventBroadcaster = hub
		revoker     ports.SessionRevoker   = hub
	)

	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)

	if cfg.Redis.Enabled {
		relay, err := redisbus.NewRelay(ctx, redisbus.Config{
			URL:     cfg.Redis.URL,
			Channel: cfg.Redis.Channel,
		}, hub, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer relay.Close()

		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("redis relay stopped", "error", err)
			}
		}()

		broadcaster, revoker = relay, relay
		healthHandler.WithCheck("redis", httpAdapter.HealthCheckFunc(relay.Ping))
		logger.Info("redis relay enabled", "channel", cfg.Redis.Channel)
	}

	notifications := services.NewOrderNotificationService(
		orderRepo,
		broadcaster,
		push.NewLogNotifier(logger),
		nil,
		logger,
	)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, notifications, logger)

		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
		logger.Info("kafka consumer enabled", "topic", cfg.Kafka.Topic)
	}

	// 6. Rate limiters
	var generalLimiter, pollLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		pollCfg := mw.PollRateLimiterConfig()
		pollCfg.RequestsPerSecond = cfg.RateLimit.PollRPS
		pollCfg.BurstSize = cfg.RateLimit.PollBurst
		pollLimiter = mw.NewRateLimiter(ctx, pollCfg)
	}

	// 7. Handlers and router
	tokenManager := auth.NewTokenManager(cfg.Session.Secret, cfg.Session.TTL)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, httpAdapter.WebSocketConfig{
		CookieName:      cfg.Session.CookieName,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowAllOrigins: cfg.IsDevelopment() && len(cfg.WebSocket.AllowedOrigins) == 0,
		Connection: websocket.ConnectionOptions{
			WriteWait:      cfg.WebSocket.WriteWait,
			PongWait:       cfg.WebSocket.PongWait,
			PingPeriod:     cfg.WebSocket.PingInterval,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBufferSize,
			InboundRPS:     cfg.WebSocket.InboundRPS,
			InboundBurst:   cfg.WebSocket.InboundBurst,
		},
	}, logger)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:         logger,
		Verifier:       tokenManager,
		CookieName:     cfg.Session.CookieName,
		InternalKey:    cfg.Internal.APIKey,
		CORSOrigins:    cfg.Server.CORSOrigins,
		GeneralLimiter: generalLimiter,
		PollLimiter:    pollLimiter,
		Health:         healthHandler,
		WebSocket:      wsHandler,
		Orders:         httpAdapter.NewOrdersHandler(orderFeed, errorHandler, logger),
		Internal:       httpAdapter.NewInternalHandler(notifications, revoker, errorHandler, logger),
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// The hub closes every live connection once ctx is done.
	<-hubDone
	notifications.Shutdown()

	logger.Info("server shutdown complete")
}
