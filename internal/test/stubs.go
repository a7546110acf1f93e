package test

import (
	"context"
	"sync"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// StrategyStub parses tokens via a function override.
type StrategyStub struct {
	ParseFn func(string) (model.Principal, error)
}

// ParseToken accepts any token as user 1 unless overridden.
func (s StrategyStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return model.Principal{UserID: 1, Role: model.RoleUser}, nil
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Principal model.Principal
	Err       error
	ParseFn   func(string) (model.Principal, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return model.Principal{}, s.Err
	}
	return s.Principal, nil
}

// GatewayStub simulates the payment gateway.
type GatewayStub struct {
	CreateFn func(context.Context, *model.Order, []model.PaymentItem) (*model.PaymentIntent, error)
	FetchFn  func(context.Context, string) (*model.PaymentEvent, error)

	mu      sync.Mutex
	Items   [][]model.PaymentItem
	Fetched []string
}

// CreatePreference records the items and returns a predictable redirect.
func (g *GatewayStub) CreatePreference(ctx context.Context, order *model.Order, items []model.PaymentItem) (*model.PaymentIntent, error) {
	g.mu.Lock()
	g.Items = append(g.Items, items)
	g.mu.Unlock()
	if g.CreateFn != nil {
		return g.CreateFn(ctx, order, items)
	}
	return &model.PaymentIntent{
		OrderID:      order.ID,
		PreferenceID: "pref-" + order.ExternalReference(),
		RedirectURL:  "https://gateway.test/checkout/" + order.ExternalReference(),
	}, nil
}

// FetchPayment records the lookup and delegates to FetchFn.
func (g *GatewayStub) FetchPayment(ctx context.Context, paymentID string) (*model.PaymentEvent, error) {
	g.mu.Lock()
	g.Fetched = append(g.Fetched, paymentID)
	g.mu.Unlock()
	if g.FetchFn != nil {
		return g.FetchFn(ctx, paymentID)
	}
	return &model.PaymentEvent{ExternalReference: "1", Status: model.GatewayStatusApproved, GatewayPaymentID: paymentID}, nil
}

// FetchCount returns how many payments were looked up.
func (g *GatewayStub) FetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Fetched)
}

// DecoderStub decodes webhook deliveries via override.
type DecoderStub struct {
	DecodeFn func(model.WebhookDelivery) (*model.PaymentNotification, error)
}

// DecodeWebhook returns a payment notification for payment "pay-1" unless overridden.
func (d DecoderStub) DecodeWebhook(delivery model.WebhookDelivery) (*model.PaymentNotification, error) {
	if d.DecodeFn != nil {
		return d.DecodeFn(delivery)
	}
	return &model.PaymentNotification{Topic: model.PaymentTopic, PaymentID: "pay-1", RequestID: delivery.RequestID}, nil
}

// PublisherStub captures published events.
type PublisherStub struct {
	PublishFn func(context.Context, model.OrderEvent) error

	mu     sync.Mutex
	Events []model.OrderEvent
	closed bool
}

// Publish records the event unless PublishFn fails.
func (p *PublisherStub) Publish(ctx context.Context, event model.OrderEvent) error {
	if p.PublishFn != nil {
		if err := p.PublishFn(ctx, event); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// Close marks the publisher closed.
func (p *PublisherStub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Published returns a copy of recorded events.
func (p *PublisherStub) Published() []model.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderEvent(nil), p.Events...)
}

// Closed reports whether Close was called.
func (p *PublisherStub) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
