package dto

import (
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderLineResponse is one purchased product with its price snapshot.
type OrderLineResponse struct {
	ProductID       int64  `json:"productId"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"priceAtPurchase"`
	Subtotal        string `json:"subtotal"`
}

// OrderResponse describes an order returned to clients.
type OrderResponse struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"userId"`
	Status    string              `json:"status"`
	Total     string              `json:"total"`
	OrderDate time.Time           `json:"orderDate"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Lines     []OrderLineResponse `json:"lines"`
}

// UpdateStatusRequest is the body of an administrative status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// NewOrderResponse renders order with money as fixed two-decimal strings.
func NewOrderResponse(order model.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineResponse{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase.StringFixed(model.MoneyPlaces),
			Subtotal:        line.Subtotal().StringFixed(model.MoneyPlaces),
		})
	}
	return OrderResponse{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(model.MoneyPlaces),
		OrderDate: order.OrderDate,
		UpdatedAt: order.UpdatedAt,
		Lines:     lines,
	}
}

// NewOrderListResponse renders orders preserving their order.
func NewOrderListResponse(orders []model.Order) []OrderResponse {
	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, NewOrderResponse(o))
	}
	return response
}
