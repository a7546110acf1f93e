package app

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// OrderFlowFacade is the single entry point the HTTP layer and workers use.
type OrderFlowFacade struct {
	auth     *usecase.AuthUseCase
	checkout *usecase.CheckoutUseCase
	orders   *usecase.OrderUseCase
	payments *usecase.PaymentUseCase
	webhooks *usecase.WebhookUseCase
	events   *usecase.EventUseCase
	health   HealthChecker
}

// NewOrderFlowFacade constructs OrderFlowFacade.
func NewOrderFlowFacade(
	auth *usecase.AuthUseCase,
	checkout *usecase.CheckoutUseCase,
	orders *usecase.OrderUseCase,
	payments *usecase.PaymentUseCase,
	webhooks *usecase.WebhookUseCase,
	events *usecase.EventUseCase,
	health HealthChecker,
) *OrderFlowFacade {
	return &OrderFlowFacade{
		auth:     auth,
		checkout: checkout,
		orders:   orders,
		payments: payments,
		webhooks: webhooks,
		events:   events,
		health:   health,
	}
}

func (f *OrderFlowFacade) ParseToken(token string) (model.Principal, error) {
	return f.auth.ParseToken(token)
}

func (f *OrderFlowFacade) CreateOrder(ctx context.Context, userID int64) (*model.Order, error) {
	return f.checkout.CreateOrder(ctx, userID)
}

func (f *OrderFlowFacade) Order(ctx context.Context, principal model.Principal, orderID int64) (*model.Order, error) {
	return f.orders.Get(ctx, principal, orderID)
}

func (f *OrderFlowFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListForUser(ctx, userID)
}

func (f *OrderFlowFacade) AllOrders(ctx context.Context) ([]model.Order, error) {
	return f.orders.ListAll(ctx)
}

func (f *OrderFlowFacade) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	return f.orders.UpdateStatus(ctx, orderID, status)
}

func (f *OrderFlowFacade) CreatePaymentIntent(ctx context.Context, principal model.Principal, orderID int64, items []model.PaymentItem) (*model.PaymentIntent, error) {
	return f.payments.CreatePaymentIntent(ctx, principal, orderID, items)
}

func (f *OrderFlowFacade) ReceiveWebhook(ctx context.Context, delivery model.WebhookDelivery) bool {
	return f.webhooks.Receive(ctx, delivery)
}

func (f *OrderFlowFacade) DueNotifications(ctx context.Context, limit int) ([]model.StoredNotification, error) {
	return f.webhooks.ClaimDue(ctx, limit)
}

func (f *OrderFlowFacade) ProcessNotification(ctx context.Context, n model.StoredNotification) error {
	return f.webhooks.Process(ctx, n)
}

func (f *OrderFlowFacade) PendingEvents(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	return f.events.ClaimPending(ctx, limit)
}

func (f *OrderFlowFacade) PublishEvent(ctx context.Context, event model.OrderEvent) error {
	return f.events.Publish(ctx, event)
}

func (f *OrderFlowFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
