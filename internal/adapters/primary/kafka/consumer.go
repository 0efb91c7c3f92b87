// Package kafka consumes order transitions published by order processing
// and hands them to the notification service.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// TransitionMessage is the record value on the transitions topic.
type TransitionMessage struct {
	OrderID string `json:"orderId"`
	Kind    string `json:"kind,omitempty"`
}

// DecodeTransition parses a record value. Kind may be omitted, in which case
// the service derives it from the order status.
func DecodeTransition(value []byte) (ports.PublishTransitionParams, error) {
	var msg TransitionMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return ports.PublishTransitionParams{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidEvent, err)
	}
	msg.OrderID = strings.TrimSpace(msg.OrderID)
	if msg.OrderID == "" {
		return ports.PublishTransitionParams{}, fmt.Errorf("%w: orderId is required", apperrors.ErrInvalidEvent)
	}

	kind := domain.EventKind(msg.Kind)
	if kind != "" && !kind.IsValid() {
		return ports.PublishTransitionParams{}, fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidEvent, msg.Kind)
	}
	return ports.PublishTransitionParams{OrderID: msg.OrderID, Kind: kind}, nil
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds consumer settings
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads transitions and publishes them as live events.
type Consumer struct {
	reader        MessageReader
	notifications ports.OrderNotificationService
	newBackOff    func() backoff.BackOff
	logger        *slog.Logger
}

// NewConsumer creates a consumer group reader for the transitions topic.
func NewConsumer(cfg Config, notifications ports.OrderNotificationService, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  500 * time.Millisecond,
	})
	return NewConsumerWithReader(reader, notifications, logger)
}

// NewConsumerWithReader wires a consumer around an existing reader.
func NewConsumerWithReader(reader MessageReader, notifications ports.OrderNotificationService, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:        reader,
		notifications: notifications,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
		logger: logger.With("component", "kafka_consumer"),
	}
}

// Run fetches until ctx is cancelled. Every message is committed after it is
// handled, including ones that could not be published: events are
// best-effort and a stuck partition would delay every later order.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("kafka consumer started")

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("kafka consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		c.handle(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("failed to commit message", "offset", m.Offset, "partition", m.Partition, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	logger := c.logger.With("partition", m.Partition, "offset", m.Offset)

	params, err := DecodeTransition(m.Value)
	if err != nil {
		logger.Warn("dropping malformed transition", "error", err)
		return
	}

	operation := func() error {
		_, err := c.notifications.PublishTransition(ctx, params)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		logger.Warn("failed to publish transition",
			"order_id", params.OrderID,
			"kind", params.Kind,
			"error", err,
		)
		return
	}
	logger.Debug("transition published", "order_id", params.OrderID, "kind", params.Kind)
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidEvent) ||
		errors.Is(err, apperrors.ErrInvalidTransition) ||
		errors.Is(err, apperrors.ErrOrderNotFound)
}
