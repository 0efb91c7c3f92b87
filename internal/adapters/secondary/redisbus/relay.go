// Package redisbus relays dispatcher traffic between service instances over
// Redis pub/sub so an emit reaches connections held by any instance.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

const publishTimeout = 2 * time.Second

// Local is the in-process dispatcher the relay delivers to.
type Local interface {
	ports.EventBroadcaster
	ports.SessionRevoker
}

type op string

const (
	opShop   op = "shop"
	opUser   op = "user"
	opRevoke op = "revoke"
)

// message is what travels on the channel. Origin lets an instance skip its
// own publications, which it has already delivered locally.
type message struct {
	Origin string             `json:"origin"`
	Op     op                 `json:"op"`
	ShopID int64              `json:"shopId,omitempty"`
	UserID uuid.UUID          `json:"userId"`
	Event  *domain.OrderEvent `json:"event,omitempty"`
}

// Config holds the relay settings
type Config struct {
	URL     string
	Channel string
}

// Relay delivers locally and mirrors every emit to the other instances.
// Delivery across instances is best-effort like local delivery.
type Relay struct {
	client     *redis.Client
	channel    string
	instanceID string
	local      Local
	logger     *slog.Logger
}

var (
	_ ports.EventBroadcaster = (*Relay)(nil)
	_ ports.SessionRevoker   = (*Relay)(nil)
)

// NewRelay connects to Redis and verifies the connection.
func NewRelay(ctx context.Context, cfg Config, local Local, logger *slog.Logger) (*Relay, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRelay(client, cfg.Channel, local, logger), nil
}

func newRelay(client *redis.Client, channel string, local Local, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = "order-notify:events"
	}
	return &Relay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		local:      local,
		logger:     logger.With("component", "redis_relay"),
	}
}

// Ping reports whether Redis is reachable, for health checks.
func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

// EmitToShop delivers to this instance's members of the shop room and
// publishes for the others.
func (r *Relay) EmitToShop(shopID int64, event domain.OrderEvent) error {
	if err := r.local.EmitToShop(shopID, event); err != nil {
		return err
	}
	r.publish(message{Op: opShop, ShopID: shopID, Event: &event})
	return nil
}

// EmitToUser delivers to this instance's connections of the user and
// publishes for the others.
func (r *Relay) EmitToUser(userID uuid.UUID, event domain.OrderEvent) error {
	if err := r.local.EmitToUser(userID, event); err != nil {
		return err
	}
	r.publish(message{Op: opUser, UserID: userID, Event: &event})
	return nil
}

// RevokeUser expires the user's connections on every instance.
func (r *Relay) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	if err := r.local.RevokeUser(ctx, userID); err != nil {
		return err
	}
	r.publish(message{Op: opRevoke, UserID: userID})
	return nil
}

func (r *Relay) publish(msg message) {
	msg.Origin = r.instanceID
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to encode relay message", "op", msg.Op, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("failed to publish relay message", "op", msg.Op, "error", err)
	}
}

// Run subscribes to the channel and applies messages from other instances
// until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so callers know it is live.
	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", "channel", r.channel, "instance_id", r.instanceID)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(m.Payload))
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload []byte) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn("dropping malformed relay message", "error", err)
		return
	}
	if msg.Origin == r.instanceID {
		return
	}

	var err error
	switch msg.Op {
	case opShop:
		if msg.Event == nil {
			err = errors.New("missing event")
			break
		}
		err = r.local.EmitToShop(msg.ShopID, *msg.Event)
	case opUser:
		if msg.Event == nil {
			err = errors.New("missing event")
			break
		}
		err = r.local.EmitToUser(msg.UserID, *msg.Event)
	case opRevoke:
		err = r.local.RevokeUser(ctx, msg.UserID)
	default:
		err = fmt.Errorf("unknown op %q", msg.Op)
	}
	if err != nil {
		r.logger.Warn("failed to apply relay message", "op", msg.Op, "origin", msg.Origin, "error", err)
	}
}
