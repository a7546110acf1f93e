package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

type notificationRepository struct {
	storage *Storage
}

type eventRepository struct {
	storage *Storage
}

// --- NotificationRepository implementation ---

func (r *notificationRepository) Record(ctx context.Context, n model.PaymentNotification, lease time.Duration) (*model.StoredNotification, error) {
	const query = `INSERT INTO payment_notifications (payment_id, topic, request_id, state, attempts, next_attempt_at)
                   VALUES ($1, $2, $3, $4, 1, NOW() + make_interval(secs => $5))
                   ON CONFLICT (payment_id) DO UPDATE
                   SET topic = EXCLUDED.topic,
                       request_id = EXCLUDED.request_id,
                       state = EXCLUDED.state,
                       attempts = 1,
                       last_error = NULL,
                       next_attempt_at = EXCLUDED.next_attempt_at,
                       updated_at = NOW()
                   RETURNING id, attempts, created_at`
	stored := model.StoredNotification{PaymentID: n.PaymentID, Topic: n.Topic, RequestID: n.RequestID}
	err := r.storage.pool.QueryRow(ctx, query, n.PaymentID, n.Topic, n.RequestID, model.NotificationStatePending, lease.Seconds()).
		Scan(&stored.ID, &stored.Attempts, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *notificationRepository) ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]model.StoredNotification, error) {
	const selectQuery = `SELECT id, payment_id, topic, request_id, attempts, created_at
                         FROM payment_notifications
                         WHERE state = $1 AND next_attempt_at <= NOW()
                         ORDER BY next_attempt_at
                         LIMIT $2
                         FOR UPDATE SKIP LOCKED`
	const leaseQuery = `UPDATE payment_notifications
                        SET attempts = attempts + 1, next_attempt_at = NOW() + make_interval(secs => $1), updated_at = NOW()
                        WHERE id = $2`

	var claimed []model.StoredNotification
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, model.NotificationStatePending, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n model.StoredNotification
			if err := rows.Scan(&n.ID, &n.PaymentID, &n.Topic, &n.RequestID, &n.Attempts, &n.CreatedAt); err != nil {
				return err
			}
			claimed = append(claimed, n)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		for i := range claimed {
			if _, err := tx.Exec(ctx, leaseQuery, lease.Seconds(), claimed[i].ID); err != nil {
				return err
			}
			claimed[i].Attempts++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *notificationRepository) MarkDone(ctx context.Context, id int64) error {
	const query = `UPDATE payment_notifications SET state = $1, last_error = NULL, updated_at = NOW() WHERE id = $2`
	_, err := r.storage.pool.Exec(ctx, query, model.NotificationStateDone, id)
	return err
}

func (r *notificationRepository) MarkRetry(ctx context.Context, id int64, reason string, next time.Time) error {
	const query = `UPDATE payment_notifications SET last_error = $1, next_attempt_at = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.storage.pool.Exec(ctx, query, reason, next, id)
	return err
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	const query = `UPDATE payment_notifications SET state = $1, last_error = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.storage.pool.Exec(ctx, query, model.NotificationStateFailed, reason, id)
	return err
}

// --- EventRepository implementation ---

func (r *eventRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OrderEvent, error) {
	const query = `UPDATE order_events SET locked_until = NOW() + make_interval(secs => $2)
                   WHERE id IN (
                       SELECT id FROM order_events
                       WHERE published_at IS NULL AND locked_until <= NOW()
                       ORDER BY id
                       LIMIT $1
                       FOR UPDATE SKIP LOCKED
                   )
                   RETURNING id, event_id::text, order_id, type, payload, created_at`
	rows, err := r.storage.pool.Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var (
			e       model.OrderEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.OrderID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) MarkPublished(ctx context.Context, id int64) error {
	const query = `UPDATE order_events SET published_at = NOW() WHERE id = $1`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}
