package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// OrderStatusUpdater is the narrow capability the payment side needs from orders.
type OrderStatusUpdater interface {
	MarkPaid(ctx context.Context, orderID int64) (*model.Order, bool, error)
}

// OrderUseCase encapsulates order queries and status changes.
type OrderUseCase struct {
	orders  repository.OrderRepository
	uow     repository.UnitOfWork
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

var _ OrderStatusUpdater = (*OrderUseCase)(nil)

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, uow repository.UnitOfWork, m *metrics.Metrics, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, uow: uow, metrics: m, logger: logger, now: time.Now}
}

// Get returns the order when the caller owns it or is an admin.
func (u *OrderUseCase) Get(ctx context.Context, principal model.Principal, orderID int64) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && order.UserID != principal.UserID {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

// ListForUser returns the caller's orders, newest first.
func (u *OrderUseCase) ListForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

// ListAll returns every order, newest first.
func (u *OrderUseCase) ListAll(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListAll(ctx)
}

// UpdateStatus sets status administratively; only known values are accepted.
func (u *OrderUseCase) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, domainErrors.ErrInvalidStatus
	}
	order, err := u.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	u.metrics.Transition(string(status))
	u.logger.InfoContext(ctx, "order status updated", slog.Int64("order_id", orderID), slog.String("status", string(status)))
	return order, nil
}

// MarkPaid moves a PENDING order to PAID and records the order.paid event in the same transaction.
// Re-application once payment is captured is a no-op; a status the machine cannot move to PAID yields ErrAlreadyTerminal.
func (u *OrderUseCase) MarkPaid(ctx context.Context, orderID int64) (order *model.Order, changed bool, err error) {
	ctx, span := tracer.Start(ctx, "OrderUseCase.MarkPaid", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	err = u.uow.InTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		current, transitioned, err := repos.Orders().MarkPaid(ctx, orderID)
		if err != nil {
			return err
		}
		order, changed = current, transitioned
		if !transitioned {
			if !current.Status.PaymentCaptured() && !current.Status.CanTransitionTo(model.OrderStatusPaid) {
				return fmt.Errorf("order %d: %w", orderID, domainErrors.ErrAlreadyTerminal)
			}
			return nil
		}

		event, err := model.NewOrderEvent(current, model.OrderEventPaid, u.now())
		if err != nil {
			return err
		}
		if _, err := repos.Events().Append(ctx, event); err != nil {
			return fmt.Errorf("append order event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		u.metrics.Transition(string(model.OrderStatusPaid))
	}
	return order, changed, nil
}
