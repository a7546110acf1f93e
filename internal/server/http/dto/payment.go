package dto

import "encoding/json"

// PaymentItemRequest is a checkout line as sent by the storefront.
// Price is accepted for compatibility and ignored; amounts come from the order.
type PaymentItemRequest struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

// CreatePreferenceRequest asks for a gateway checkout of an existing order.
type CreatePreferenceRequest struct {
	OrderID int64                `json:"orderId" binding:"required,gt=0"`
	Items   []PaymentItemRequest `json:"items"`
}

// PreferenceResponse carries the gateway redirect for the order.
type PreferenceResponse struct {
	RedirectURL  string `json:"redirectURL"`
	PreferenceID string `json:"preferenceId"`
}

// WebhookAck is returned for every gateway callback.
type WebhookAck struct {
	Received bool `json:"received"`
}
