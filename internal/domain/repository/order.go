package repository

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderRepository serves order queries and administrative status changes outside checkout.
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
}
