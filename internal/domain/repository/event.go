package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// EventRepository drains the order events outbox.
type EventRepository interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OrderEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}
