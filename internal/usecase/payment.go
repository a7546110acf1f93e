package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// PaymentGateway is the outbound payment provider.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, order *model.Order, items []model.PaymentItem) (*model.PaymentIntent, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.PaymentEvent, error)
}

// PaymentOptions tunes which orders may start a gateway checkout.
type PaymentOptions struct {
	// PaidOnCreate mirrors CheckoutOptions.PaidOnCreate: orders are born PAID
	// and still need their gateway checkout.
	PaidOnCreate bool
}

// PaymentUseCase starts gateway checkouts for existing orders.
type PaymentUseCase struct {
	orders  repository.OrderRepository
	gateway PaymentGateway
	opts    PaymentOptions
	logger  *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(orders repository.OrderRepository, gateway PaymentGateway, opts PaymentOptions, logger *slog.Logger) *PaymentUseCase {
	return &PaymentUseCase{orders: orders, gateway: gateway, opts: opts, logger: logger}
}

// CreatePaymentIntent opens a gateway checkout for the caller's order.
// Amounts always come from the order's price snapshot; requested items only contribute titles.
func (u *PaymentUseCase) CreatePaymentIntent(ctx context.Context, principal model.Principal, orderID int64, requested []model.PaymentItem) (intent *model.PaymentIntent, err error) {
	ctx, span := tracer.Start(ctx, "PaymentUseCase.CreatePaymentIntent", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && order.UserID != principal.UserID {
		return nil, domainErrors.ErrOrderNotFound
	}
	if err := u.checkPayable(order); err != nil {
		return nil, err
	}

	items, err := paymentItems(order, requested)
	if err != nil {
		return nil, err
	}

	intent, err = u.gateway.CreatePreference(ctx, order, items)
	if err != nil {
		u.logger.ErrorContext(ctx, "payment preference failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
		return nil, err
	}
	u.logger.InfoContext(ctx, "payment preference created", slog.Int64("order_id", orderID), slog.String("preference_id", intent.PreferenceID))
	return intent, nil
}

func (u *PaymentUseCase) checkPayable(order *model.Order) error {
	status := order.Status
	switch {
	case !status.PaymentCaptured() && !status.CanTransitionTo(model.OrderStatusPaid):
		return fmt.Errorf("order %d: %w", order.ID, domainErrors.ErrAlreadyTerminal)
	case status == model.OrderStatusPaid && u.opts.PaidOnCreate:
		return nil
	case status.PaymentCaptured():
		return fmt.Errorf("order %d: %w", order.ID, domainErrors.ErrAlreadyPaid)
	}
	return nil
}

func paymentItems(order *model.Order, requested []model.PaymentItem) ([]model.PaymentItem, error) {
	titles := make(map[int64]string, len(requested))
	for _, item := range requested {
		if item.ProductID <= 0 {
			return nil, fmt.Errorf("item product id must be positive: %w", domainErrors.ErrValidation)
		}
		titles[item.ProductID] = strings.TrimSpace(item.Title)
	}

	items := make([]model.PaymentItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		title := titles[line.ProductID]
		if title == "" {
			title = fmt.Sprintf("Product #%d", line.ProductID)
		}
		items = append(items, model.PaymentItem{
			ProductID: line.ProductID,
			Title:     title,
			Quantity:  line.Quantity,
			UnitPrice: line.PriceAtPurchase,
		})
	}
	return items, nil
}
