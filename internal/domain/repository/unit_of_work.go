package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// UnitOfWork runs fn inside a single database transaction.
// The transaction commits only when fn returns nil.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

// TxRepositories exposes repositories bound to the running transaction.
type TxRepositories interface {
	Carts() CartStore
	Stock() StockLedger
	Users() UserReader
	Orders() OrderWriter
	Events() EventWriter
}

// CartStore reads and clears a user's cart.
type CartStore interface {
	Lines(ctx context.Context, userID int64) ([]model.CartLine, error)
	Clear(ctx context.Context, userID int64) error
}

// StockLedger gives exclusive access to product inventory for the transaction.
type StockLedger interface {
	// Reserve locks the product row, verifies stock covers quantity and returns the current unit price.
	Reserve(ctx context.Context, productID int64, quantity int) (decimal.Decimal, error)
	// Decrement conditionally lowers stock; it never drives stock below zero.
	Decrement(ctx context.Context, productID int64, quantity int) error
}

// UserReader resolves user identities.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// OrderWriter persists orders and applies payment transitions.
type OrderWriter interface {
	// Create stores the order with its lines and fills ID and OrderDate.
	Create(ctx context.Context, order *model.Order) error
	// MarkPaid moves a PENDING order to PAID. It returns the order header (without lines)
	// as it is afterwards and reports whether this call changed it.
	MarkPaid(ctx context.Context, orderID int64) (*model.Order, bool, error)
}

// EventWriter appends outbox events. Append reports false when the event already exists.
type EventWriter interface {
	Append(ctx context.Context, event model.OrderEvent) (bool, error)
}
