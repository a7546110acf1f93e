package model

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatus is the payment status reported by the gateway.
type GatewayStatus string

const (
	GatewayStatusApproved   GatewayStatus = "approved"
	GatewayStatusPending    GatewayStatus = "pending"
	GatewayStatusInProcess  GatewayStatus = "in_process"
	GatewayStatusRejected   GatewayStatus = "rejected"
	GatewayStatusCancelled  GatewayStatus = "cancelled"
	GatewayStatusRefunded   GatewayStatus = "refunded"
	GatewayStatusChargeback GatewayStatus = "charged_back"
)

// PaymentTopic is the notification topic carrying payment updates.
const PaymentTopic = "payment"

// PaymentItem is one line of a payment intent.
type PaymentItem struct {
	ProductID int64
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PaymentIntent is the gateway-side checkout session created for an order.
type PaymentIntent struct {
	OrderID      int64
	PreferenceID string
	RedirectURL  string
}

// WebhookDelivery is an inbound gateway callback as received over HTTP.
type WebhookDelivery struct {
	Body      []byte
	Query     url.Values
	Signature string
	RequestID string
}

// PaymentNotification is a schema-valid webhook that still needs confirmation with the gateway.
type PaymentNotification struct {
	Topic     string
	Action    string
	PaymentID string
	RequestID string
}

// PaymentEvent is a confirmed payment state correlated to an order.
type PaymentEvent struct {
	ExternalReference string
	Status            GatewayStatus
	GatewayPaymentID  string
}

// NotificationState tracks reprocessing of a recorded webhook.
type NotificationState string

const (
	NotificationStatePending NotificationState = "PENDING"
	NotificationStateDone    NotificationState = "DONE"
	NotificationStateFailed  NotificationState = "FAILED"
)

// StoredNotification is a webhook recorded in the inbox for (re)processing.
type StoredNotification struct {
	ID        int64
	PaymentID string
	Topic     string
	RequestID string
	Attempts  int
	CreatedAt time.Time
}
