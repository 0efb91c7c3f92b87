package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// OrderNotificationService converts order transitions into live events and
// hands them to the dispatcher. Events are best-effort: nothing is stored.
type OrderNotificationService struct {
	orderRepo   ports.OrderRepository
	broadcaster ports.EventBroadcaster
	pusher      ports.PushNotifier
	clock       clock.Clock
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.OrderNotificationService = (*OrderNotificationService)(nil)

// NewOrderNotificationService creates a new order notification service.
// pusher may be nil when push delivery is disabled.
func NewOrderNotificationService(
	orderRepo ports.OrderRepository,
	broadcaster ports.EventBroadcaster,
	pusher ports.PushNotifier,
	clk clock.Clock,
	logger *slog.Logger,
) *OrderNotificationService {
	if clk == nil {
		clk = clock.New()
	}
	return &OrderNotificationService{
		orderRepo:   orderRepo,
		broadcaster: broadcaster,
		pusher:      pusher,
		clock:       clk,
		logger:      logger.With("component", "order_notifications"),
	}
}

// PublishTransition loads the order snapshot, builds the event and emits it
// to the shop room and, for buyer-facing kinds, to the buyer's sessions.
func (s *OrderNotificationService) PublishTransition(ctx context.Context, params ports.PublishTransitionParams) (*domain.OrderEvent, error) {
	orderID := strings.TrimSpace(params.OrderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", apperrors.ErrInvalidEvent)
	}
	if params.Kind != "" && !params.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidEvent, params.Kind)
	}

	summary, err := s.orderRepo.GetSummary(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	kind := params.Kind
	if kind == "" {
		kind, err = domain.KindForStatus(summary.Status)
		if err != nil {
			return nil, err
		}
	}

	event := domain.NewOrderEvent(kind, *summary, s.clock.Now())
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.broadcaster.EmitToShop(summary.ShopID, event); err != nil {
		return nil, err
	}

	if kind.NotifiesBuyer() && summary.BuyerID != uuid.Nil {
		if err := s.broadcaster.EmitToUser(summary.BuyerID, event); err != nil {
			return nil, err
		}
		s.notifyBuyer(summary.BuyerID, event)
	}

	s.logger.InfoContext(ctx, "order event published",
		"order_id", summary.ID,
		"shop_id", summary.ShopID,
		"kind", kind,
	)

	return &event, nil
}

// notifyBuyer sends the push notification in the background
func (s *OrderNotificationService) notifyBuyer(buyerID uuid.UUID, event domain.OrderEvent) {
	if s.pusher == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context may be gone by the time the push goes out.
		s.pusher.NotifyOrder(context.Background(), buyerID, event)
	}()
}

// Shutdown waits for in-flight push notifications.
func (s *OrderNotificationService) Shutdown() {
	s.wg.Wait()
}
