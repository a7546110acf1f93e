package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
)

// OrderStatus describes order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// MoneyPlaces is the number of fractional digits money is persisted with.
const MoneyPlaces = 2

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", domainErrors.ErrInvalidStatus, raw)
	}
	return status, nil
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next directly follows s in the order state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// PaymentCaptured reports whether an order in status s has already been paid for.
func (s OrderStatus) PaymentCaptured() bool {
	switch s {
	case OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// OrderLine is an immutable snapshot of one purchased product.
type OrderLine struct {
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Subtotal returns quantity multiplied by the purchase price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a durable record of a completed checkout.
type Order struct {
	ID        int64
	UserID    int64
	OrderDate time.Time
	Status    OrderStatus
	Total     decimal.Decimal
	Lines     []OrderLine
	UpdatedAt time.Time
}

// NewOrder builds an unsaved order and computes its total once.
func NewOrder(userID int64, status OrderStatus, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, domainErrors.ErrEmptyCart
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrInvalidStatus, status)
	}
	snapshot := make([]OrderLine, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", domainErrors.ErrValidation, line.ProductID, line.Quantity)
		}
		if line.PriceAtPurchase.IsNegative() {
			return nil, fmt.Errorf("%w: product %d has negative price", domainErrors.ErrValidation, line.ProductID)
		}
		line.PriceAtPurchase = line.PriceAtPurchase.Round(MoneyPlaces)
		snapshot[i] = line
	}
	return &Order{
		UserID: userID,
		Status: status,
		Total:  SumLines(snapshot),
		Lines:  snapshot,
	}, nil
}

// SumLines adds line subtotals.
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// TotalConsistent reports whether Total still equals the sum of the lines.
func (o *Order) TotalConsistent() bool {
	return o.Total.Equal(SumLines(o.Lines))
}

// ExternalReference is the correlation key exchanged with the payment gateway.
func (o *Order) ExternalReference() string {
	return strconv.FormatInt(o.ID, 10)
}

// ParseExternalReference resolves a gateway external reference back to an order id.
func ParseExternalReference(ref string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: external reference %q", domainErrors.ErrOrderNotFound, ref)
	}
	return id, nil
}
