package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/metrics"
)

const maxRetryDelay = time.Hour

// WebhookDecoder validates raw gateway callbacks.
type WebhookDecoder interface {
	DecodeWebhook(delivery model.WebhookDelivery) (*model.PaymentNotification, error)
}

// PaymentReconciler applies confirmed payment states.
type PaymentReconciler interface {
	ApplyPaymentEvent(ctx context.Context, externalReference string, status model.GatewayStatus) error
}

// WebhookOptions tunes notification confirmation and reprocessing.
type WebhookOptions struct {
	ConfirmTimeout time.Duration
	RetryBackoff   time.Duration
	MaxAttempts    int
}

// WebhookUseCase records gateway notifications and confirms them against the gateway.
type WebhookUseCase struct {
	decoder       WebhookDecoder
	gateway       PaymentGateway
	notifications repository.NotificationRepository
	reconciler    PaymentReconciler
	metrics       *metrics.Metrics
	logger        *slog.Logger
	opts          WebhookOptions
	now           func() time.Time
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(
	decoder WebhookDecoder,
	gateway PaymentGateway,
	notifications repository.NotificationRepository,
	reconciler PaymentReconciler,
	opts WebhookOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WebhookUseCase {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 5 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &WebhookUseCase{
		decoder:       decoder,
		gateway:       gateway,
		notifications: notifications,
		reconciler:    reconciler,
		metrics:       m,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// Receive handles one inbound callback and reports whether it was fully applied.
// Failures never propagate: the caller always acknowledges the delivery.
func (u *WebhookUseCase) Receive(ctx context.Context, delivery model.WebhookDelivery) bool {
	ctx, span := tracer.Start(ctx, "WebhookUseCase.Receive")
	defer span.End()

	notification, err := u.decoder.DecodeWebhook(delivery)
	if err != nil {
		u.metrics.Webhook("malformed")
		u.logger.WarnContext(ctx, "webhook rejected", slog.String("request_id", delivery.RequestID), slog.String("error", err.Error()))
		return false
	}
	span.SetAttributes(attribute.String("payment.id", notification.PaymentID), attribute.String("webhook.topic", notification.Topic))
	if notification.Topic != model.PaymentTopic {
		u.metrics.Webhook("ignored")
		u.logger.DebugContext(ctx, "webhook topic ignored", slog.String("topic", notification.Topic))
		return false
	}

	// The request may be cancelled once the gateway disconnects; confirmation continues regardless.
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.opts.ConfirmTimeout)
	defer cancel()

	stored, err := u.notifications.Record(confirmCtx, *notification, u.lease())
	if err != nil {
		u.logger.ErrorContext(ctx, "record webhook failed", slog.String("payment_id", notification.PaymentID), slog.String("error", err.Error()))
		stored = &model.StoredNotification{
			PaymentID: notification.PaymentID,
			Topic:     notification.Topic,
			RequestID: notification.RequestID,
			Attempts:  1,
		}
	}
	return u.Process(confirmCtx, *stored) == nil
}

// ClaimDue leases notifications whose retry time has come.
func (u *WebhookUseCase) ClaimDue(ctx context.Context, limit int) ([]model.StoredNotification, error) {
	return u.notifications.ClaimBatch(ctx, limit, u.lease())
}

// Process confirms a recorded notification with the gateway and applies it.
// The inbox row ends DONE, FAILED, or scheduled for another attempt.
func (u *WebhookUseCase) Process(ctx context.Context, n model.StoredNotification) error {
	ctx, span := tracer.Start(ctx, "WebhookUseCase.Process", trace.WithAttributes(
		attribute.String("payment.id", n.PaymentID),
		attribute.Int("notification.attempts", n.Attempts),
	))

	err := u.confirm(ctx, n)
	u.settle(ctx, n, err)
	endSpan(span, err)
	return err
}

func (u *WebhookUseCase) confirm(ctx context.Context, n model.StoredNotification) error {
	event, err := u.gateway.FetchPayment(ctx, n.PaymentID)
	if err != nil {
		return err
	}
	return u.reconciler.ApplyPaymentEvent(ctx, event.ExternalReference, event.Status)
}

func (u *WebhookUseCase) settle(ctx context.Context, n model.StoredNotification, cause error) {
	// Bookkeeping must survive an expired confirmation deadline.
	ctx = context.WithoutCancel(ctx)
	logger := u.logger.With(slog.String("payment_id", n.PaymentID), slog.Int("attempt", n.Attempts))

	var (
		outcome string
		err     error
	)
	switch {
	case cause == nil:
		outcome = "processed"
		if n.ID != 0 {
			err = u.notifications.MarkDone(ctx, n.ID)
		}
		logger.InfoContext(ctx, "payment notification applied")
	case isPermanentWebhookError(cause):
		outcome = "rejected"
		if n.ID != 0 {
			err = u.notifications.MarkFailed(ctx, n.ID, cause.Error())
		}
		logger.WarnContext(ctx, "payment notification rejected", slog.String("error", cause.Error()))
	case n.Attempts >= u.opts.MaxAttempts:
		outcome = "exhausted"
		if n.ID != 0 {
			err = u.notifications.MarkFailed(ctx, n.ID, cause.Error())
		}
		logger.ErrorContext(ctx, "payment notification gave up", slog.String("error", cause.Error()))
	default:
		id, recordErr := u.inboxID(ctx, n)
		if recordErr != nil {
			outcome = "unrecorded"
			logger.ErrorContext(ctx, "payment notification lost: confirmation failed and inbox is unavailable",
				slog.String("error", cause.Error()),
				slog.String("record_error", recordErr.Error()))
			break
		}
		outcome = "retry"
		next := u.now().Add(u.retryDelay(n.Attempts))
		err = u.notifications.MarkRetry(ctx, id, cause.Error(), next)
		logger.WarnContext(ctx, "payment notification will be retried", slog.Time("next_attempt", next), slog.String("error", cause.Error()))
	}
	u.metrics.Webhook(outcome)
	if err != nil {
		logger.ErrorContext(ctx, "update notification state failed", slog.String("error", err.Error()))
	}
}

// inboxID returns the inbox row of n, storing it now when Receive could not.
func (u *WebhookUseCase) inboxID(ctx context.Context, n model.StoredNotification) (int64, error) {
	if n.ID != 0 {
		return n.ID, nil
	}
	stored, err := u.notifications.Record(ctx, model.PaymentNotification{
		Topic:     n.Topic,
		PaymentID: n.PaymentID,
		RequestID: n.RequestID,
	}, u.lease())
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (u *WebhookUseCase) retryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := u.opts.RetryBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// lease keeps a recorded notification away from the worker while it is confirmed inline.
func (u *WebhookUseCase) lease() time.Duration {
	return 2 * u.opts.ConfirmTimeout
}

func isPermanentWebhookError(err error) bool {
	return errors.Is(err, domainErrors.ErrMalformedEvent) ||
		errors.Is(err, domainErrors.ErrNotFound) ||
		errors.Is(err, domainErrors.ErrAlreadyTerminal)
}
