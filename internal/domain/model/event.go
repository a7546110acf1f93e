package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrderEventType names a fact about an order published to downstream consumers.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventPaid    OrderEventType = "order.paid"
)

// OrderEvent is an outbox row written in the same transaction as the change it describes.
type OrderEvent struct {
	ID        int64
	EventID   string
	OrderID   int64
	Type      OrderEventType
	Payload   json.RawMessage
	CreatedAt time.Time
}

type orderEventPayload struct {
	EventID    string         `json:"event_id"`
	Type       OrderEventType `json:"type"`
	OrderID    int64          `json:"order_id"`
	UserID     int64          `json:"user_id"`
	Status     OrderStatus    `json:"status"`
	Total      string         `json:"total"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewOrderEvent snapshots order into an event of the given type.
func NewOrderEvent(order *Order, eventType OrderEventType, at time.Time) (OrderEvent, error) {
	eventID := uuid.NewString()
	payload, err := json.Marshal(orderEventPayload{
		EventID:    eventID,
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.Total.StringFixed(MoneyPlaces),
		OccurredAt: at.UTC(),
	})
	if err != nil {
		return OrderEvent{}, err
	}
	return OrderEvent{
		EventID:   eventID,
		OrderID:   order.ID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: at,
	}, nil
}
