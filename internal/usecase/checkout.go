package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// CheckoutOptions tunes the order transaction.
type CheckoutOptions struct {
	TxTimeout    time.Duration
	PaidOnCreate bool
}

// CheckoutUseCase turns a user's cart into a persisted order atomically.
type CheckoutUseCase struct {
	uow     repository.UnitOfWork
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    CheckoutOptions
	now     func() time.Time
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(uow repository.UnitOfWork, opts CheckoutOptions, m *metrics.Metrics, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{uow: uow, metrics: m, logger: logger, opts: opts, now: time.Now}
}

// CreateOrder converts the cart of userID into an order, decrementing stock and clearing the cart.
func (u *CheckoutUseCase) CreateOrder(ctx context.Context, userID int64) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "CheckoutUseCase.CreateOrder", trace.WithAttributes(attribute.Int64("user.id", userID)))
	started := time.Now()

	order, err := u.createOrder(ctx, userID)

	u.metrics.ObserveCheckout(checkoutOutcome(err), time.Since(started))
	if err != nil {
		u.logger.WarnContext(ctx, "checkout failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	} else {
		span.SetAttributes(attribute.Int64("order.id", order.ID))
		u.logger.InfoContext(ctx, "order created",
			slog.Int64("order_id", order.ID),
			slog.Int64("user_id", userID),
			slog.String("total", order.Total.StringFixed(model.MoneyPlaces)))
	}
	endSpan(span, err)
	return order, err
}

func (u *CheckoutUseCase) createOrder(ctx context.Context, userID int64) (*model.Order, error) {
	if u.opts.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.TxTimeout)
		defer cancel()
	}

	status := model.OrderStatusPending
	if u.opts.PaidOnCreate {
		status = model.OrderStatusPaid
	}

	var created *model.Order
	err := u.uow.InTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		cart, err := repos.Carts().Lines(ctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(cart) == 0 {
			return domainErrors.ErrEmptyCart
		}

		if _, err := repos.Users().GetByID(ctx, userID); err != nil {
			return err
		}

		// Ascending product id keeps lock acquisition order stable across checkouts.
		cart = slices.Clone(cart)
		slices.SortFunc(cart, func(a, b model.CartLine) int { return cmp.Compare(a.ProductID, b.ProductID) })

		lines := make([]model.OrderLine, 0, len(cart))
		for _, item := range cart {
			price, err := repos.Stock().Reserve(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			lines = append(lines, model.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity, PriceAtPurchase: price})
		}

		order, err := model.NewOrder(userID, status, lines)
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}

		for _, line := range order.Lines {
			if err := repos.Stock().Decrement(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := repos.Carts().Clear(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		event, err := model.NewOrderEvent(order, model.OrderEventCreated, u.now())
		if err != nil {
			return err
		}
		if _, err := repos.Events().Append(ctx, event); err != nil {
			return fmt.Errorf("append order event: %w", err)
		}

		created = order
		return nil
	})
	if err != nil {
		if isCheckoutDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrTransactionFailed, err)
	}
	return created, nil
}

func isCheckoutDomainError(err error) bool {
	for _, target := range []error{
		domainErrors.ErrEmptyCart,
		domainErrors.ErrInsufficientStock,
		domainErrors.ErrNotFound,
		domainErrors.ErrValidation,
		domainErrors.ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domainErrors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domainErrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domainErrors.ErrNotFound):
		return "not_found"
	default:
		return "failed"
	}
}
