package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// NotificationRepository is the inbox of webhook deliveries awaiting confirmation.
type NotificationRepository interface {
	// Record upserts the notification and leases it to the caller for lease.
	Record(ctx context.Context, n model.PaymentNotification, lease time.Duration) (*model.StoredNotification, error)
	// ClaimBatch leases up to limit due notifications, skipping rows held by other workers.
	ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]model.StoredNotification, error)
	MarkDone(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, reason string, next time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}
