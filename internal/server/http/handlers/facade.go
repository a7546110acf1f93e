package handlers

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// CheckoutFacade turns carts into orders.
type CheckoutFacade interface {
	CreateOrder(ctx context.Context, userID int64) (*model.Order, error)
}

// OrderFacade serves order queries and administrative updates.
type OrderFacade interface {
	Order(ctx context.Context, principal model.Principal, orderID int64) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
	AllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error)
}

// PaymentFacade opens gateway checkouts and accepts gateway callbacks.
type PaymentFacade interface {
	CreatePaymentIntent(ctx context.Context, principal model.Principal, orderID int64, items []model.PaymentItem) (*model.PaymentIntent, error)
	ReceiveWebhook(ctx context.Context, delivery model.WebhookDelivery) bool
}

// HealthFacade reports readiness.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// OrderFlowFacade aggregates everything the router needs.
type OrderFlowFacade interface {
	ParseToken(token string) (model.Principal, error)
	CheckoutFacade
	OrderFacade
	PaymentFacade
	HealthFacade
}
