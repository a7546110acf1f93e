package test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
)

// SampleOrder returns a PENDING order of 2 x 10.50 and 1 x 4.00 owned by userID.
func SampleOrder(id, userID int64) *model.Order {
	lines := []model.OrderLine{
		{ProductID: 10, Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.50")},
		{ProductID: 20, Quantity: 1, PriceAtPurchase: decimal.RequireFromString("4.00")},
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:        id,
		UserID:    userID,
		Status:    model.OrderStatusPending,
		Total:     model.SumLines(lines),
		Lines:     lines,
		OrderDate: at,
		UpdatedAt: at,
	}
}

// FacadeStub provides controllable behaviour for HTTP endpoints.
type FacadeStub struct {
	ParseFn         func(string) (model.Principal, error)
	CreateOrderFn   func(context.Context, int64) (*model.Order, error)
	OrderFn         func(context.Context, model.Principal, int64) (*model.Order, error)
	OrdersFn        func(context.Context, int64) ([]model.Order, error)
	AllOrdersFn     func(context.Context) ([]model.Order, error)
	UpdateStatusFn  func(context.Context, int64, model.OrderStatus) (*model.Order, error)
	PaymentIntentFn func(context.Context, model.Principal, int64, []model.PaymentItem) (*model.PaymentIntent, error)
	WebhookFn       func(context.Context, model.WebhookDelivery) bool
	HealthFn        func(context.Context) error
}

// ParseToken accepts "user-token" and "admin-token" unless overridden.
func (s FacadeStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	switch token {
	case "user-token":
		return model.Principal{UserID: 1, Role: model.RoleUser}, nil
	case "admin-token":
		return model.Principal{UserID: 99, Role: model.RoleAdmin}, nil
	}
	return model.Principal{}, pkgAuth.ErrInvalidToken
}

// CreateOrder returns a sample order for userID.
func (s FacadeStub) CreateOrder(ctx context.Context, userID int64) (*model.Order, error) {
	if s.CreateOrderFn != nil {
		return s.CreateOrderFn(ctx, userID)
	}
	return SampleOrder(1, userID), nil
}

// Order returns a sample order owned by the caller.
func (s FacadeStub) Order(ctx context.Context, principal model.Principal, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, principal, orderID)
	}
	return SampleOrder(orderID, principal.UserID), nil
}

// Orders returns one sample order for userID.
func (s FacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{*SampleOrder(1, userID)}, nil
}

// AllOrders returns sample orders of two users.
func (s FacadeStub) AllOrders(ctx context.Context) ([]model.Order, error) {
	if s.AllOrdersFn != nil {
		return s.AllOrdersFn(ctx)
	}
	return []model.Order{*SampleOrder(2, 2), *SampleOrder(1, 1)}, nil
}

// UpdateOrderStatus returns a sample order in the requested status.
func (s FacadeStub) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, orderID, status)
	}
	order := SampleOrder(orderID, 1)
	order.Status = status
	return order, nil
}

// CreatePaymentIntent returns a predictable redirect.
func (s FacadeStub) CreatePaymentIntent(ctx context.Context, principal model.Principal, orderID int64, items []model.PaymentItem) (*model.PaymentIntent, error) {
	if s.PaymentIntentFn != nil {
		return s.PaymentIntentFn(ctx, principal, orderID, items)
	}
	return &model.PaymentIntent{OrderID: orderID, PreferenceID: "pref-1", RedirectURL: "https://gateway.test/checkout/pref-1"}, nil
}

// ReceiveWebhook reports the delivery as applied.
func (s FacadeStub) ReceiveWebhook(ctx context.Context, delivery model.WebhookDelivery) bool {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, delivery)
	}
	return true
}

// HealthCheck reports healthy storage.
func (s FacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}
