package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// EventPublisher delivers order events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

// EventUseCase relays outbox order events to the publisher.
type EventUseCase struct {
	events    repository.EventRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	lease     time.Duration
}

// NewEventUseCase constructs EventUseCase.
func NewEventUseCase(events repository.EventRepository, publisher EventPublisher, lease time.Duration, m *metrics.Metrics, logger *slog.Logger) *EventUseCase {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &EventUseCase{events: events, publisher: publisher, metrics: m, logger: logger, lease: lease}
}

// ClaimPending leases unpublished events.
func (u *EventUseCase) ClaimPending(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	return u.events.ClaimPending(ctx, limit, u.lease)
}

// Publish delivers one event and marks it published; an unmarked event is redelivered after its lease.
func (u *EventUseCase) Publish(ctx context.Context, event model.OrderEvent) error {
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.metrics.EventPublished("failed")
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	if err := u.events.MarkPublished(ctx, event.ID); err != nil {
		u.metrics.EventPublished("unmarked")
		return fmt.Errorf("mark event %s published: %w", event.EventID, err)
	}
	u.metrics.EventPublished("published")
	u.logger.DebugContext(ctx, "order event published", slog.String("event_id", event.EventID), slog.String("type", string(event.Type)))
	return nil
}
