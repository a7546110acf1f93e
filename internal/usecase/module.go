package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		NewAuthUseCase,
		NewOrderUseCase,
		newPaymentUseCase,
		newCheckoutUseCase,
		newReconcilerUseCase,
		newWebhookUseCase,
		newEventUseCase,
	),
)

type checkoutParams struct {
	fx.In

	UnitOfWork repository.UnitOfWork
	Config     *config.Config
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.UnitOfWork, CheckoutOptions{
		TxTimeout:    p.Config.OrderTxTimeout,
		PaidOnCreate: p.Config.PaidOnCreate,
	}, p.Metrics, p.Logger)
}

type paymentParams struct {
	fx.In

	Orders  repository.OrderRepository
	Gateway PaymentGateway
	Config  *config.Config
	Logger  *slog.Logger
}

func newPaymentUseCase(p paymentParams) *PaymentUseCase {
	return NewPaymentUseCase(p.Orders, p.Gateway, PaymentOptions{PaidOnCreate: p.Config.PaidOnCreate}, p.Logger)
}

func newReconcilerUseCase(orders *OrderUseCase, logger *slog.Logger) *ReconcilerUseCase {
	return NewReconcilerUseCase(orders, logger)
}

type webhookParams struct {
	fx.In

	Decoder       WebhookDecoder
	Gateway       PaymentGateway
	Notifications repository.NotificationRepository
	Reconciler    *ReconcilerUseCase
	Config        *config.Config
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

func newWebhookUseCase(p webhookParams) *WebhookUseCase {
	return NewWebhookUseCase(p.Decoder, p.Gateway, p.Notifications, p.Reconciler, WebhookOptions{
		ConfirmTimeout: p.Config.WebhookConfirmTimeout,
		RetryBackoff:   p.Config.NotificationRetryBackoff,
		MaxAttempts:    p.Config.NotificationMaxAttempts,
	}, p.Metrics, p.Logger)
}

type eventParams struct {
	fx.In

	Events    repository.EventRepository
	Publisher EventPublisher
	Config    *config.Config
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func newEventUseCase(p eventParams) *EventUseCase {
	return NewEventUseCase(p.Events, p.Publisher, 3*p.Config.EventRelayInterval, p.Metrics, p.Logger)
}
