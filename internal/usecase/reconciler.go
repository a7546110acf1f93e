package usecase

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// ReconcilerUseCase applies confirmed gateway payment states to orders.
type ReconcilerUseCase struct {
	orders OrderStatusUpdater
	logger *slog.Logger
}

// NewReconcilerUseCase constructs ReconcilerUseCase.
func NewReconcilerUseCase(orders OrderStatusUpdater, logger *slog.Logger) *ReconcilerUseCase {
	return &ReconcilerUseCase{orders: orders, logger: logger}
}

// ApplyPaymentEvent marks the referenced order PAID on approval and ignores every other status.
func (u *ReconcilerUseCase) ApplyPaymentEvent(ctx context.Context, externalReference string, status model.GatewayStatus) (err error) {
	ctx, span := tracer.Start(ctx, "ReconcilerUseCase.ApplyPaymentEvent", trace.WithAttributes(
		attribute.String("payment.external_reference", externalReference),
		attribute.String("payment.status", string(status)),
	))
	defer func() { endSpan(span, err) }()

	orderID, err := model.ParseExternalReference(externalReference)
	if err != nil {
		return err
	}

	if status != model.GatewayStatusApproved {
		u.logger.InfoContext(ctx, "payment not approved, ignoring",
			slog.Int64("order_id", orderID),
			slog.String("status", string(status)))
		return nil
	}

	order, changed, err := u.orders.MarkPaid(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyTerminal) {
			u.logger.WarnContext(ctx, "approved payment for terminal order", slog.Int64("order_id", orderID))
		}
		return err
	}
	if changed {
		u.logger.InfoContext(ctx, "order paid", slog.Int64("order_id", orderID))
	} else {
		u.logger.DebugContext(ctx, "payment already applied", slog.Int64("order_id", orderID), slog.String("status", string(order.Status)))
	}
	return nil
}
