package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// txRepositories binds repositories to one open transaction.
type txRepositories struct {
	q querier
}

type cartStore struct {
	q querier
}

type stockLedger struct {
	q querier
}

type userReader struct {
	q querier
}

type orderWriter struct {
	q querier
}

type eventWriter struct {
	q querier
}

func (r *txRepositories) Carts() repository.CartStore {
	return &cartStore{q: r.q}
}

func (r *txRepositories) Stock() repository.StockLedger {
	return &stockLedger{q: r.q}
}

func (r *txRepositories) Users() repository.UserReader {
	return &userReader{q: r.q}
}

func (r *txRepositories) Orders() repository.OrderWriter {
	return &orderWriter{q: r.q}
}

func (r *txRepositories) Events() repository.EventWriter {
	return &eventWriter{q: r.q}
}

// --- CartStore implementation ---

func (c *cartStore) Lines(ctx context.Context, userID int64) ([]model.CartLine, error) {
	const query = `SELECT ci.product_id, ci.quantity
                   FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
                   WHERE c.user_id = $1
                   ORDER BY ci.product_id
                   FOR UPDATE OF ci`
	rows, err := c.q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var line model.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *cartStore) Clear(ctx context.Context, userID int64) error {
	const query = `DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`
	_, err := c.q.Exec(ctx, query, userID)
	return err
}

// --- StockLedger implementation ---

func (l *stockLedger) Reserve(ctx context.Context, productID int64, quantity int) (decimal.Decimal, error) {
	const query = `SELECT price::text, stock FROM products WHERE id = $1 FOR UPDATE`
	var (
		rawPrice string
		stock    int
	)
	if err := l.q.QueryRow(ctx, query, productID).Scan(&rawPrice, &stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, &domainErrors.ProductNotFoundError{ProductID: productID}
		}
		return decimal.Zero, err
	}
	if stock < quantity {
		return decimal.Zero, &domainErrors.InsufficientStockError{ProductID: productID, Requested: quantity, Available: stock}
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price of product %d: %w", productID, err)
	}
	return price, nil
}

func (l *stockLedger) Decrement(ctx context.Context, productID int64, quantity int) error {
	const query = `UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`
	tag, err := l.q.Exec(ctx, query, quantity, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domainErrors.InsufficientStockError{ProductID: productID, Requested: quantity}
	}
	return nil
}

// --- UserReader implementation ---

func (r *userReader) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, email, role, created_at FROM users WHERE id = $1`
	var u model.User
	err := r.q.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- OrderWriter implementation ---

func (w *orderWriter) Create(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (user_id, status, total) VALUES ($1, $2, $3)
                         RETURNING id, order_date, updated_at`
	total := order.Total.StringFixed(model.MoneyPlaces)
	if err := w.q.QueryRow(ctx, insertOrder, order.UserID, order.Status, total).Scan(&order.ID, &order.OrderDate, &order.UpdatedAt); err != nil {
		return err
	}

	const insertLine = `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) VALUES ($1, $2, $3, $4)`
	for _, line := range order.Lines {
		price := line.PriceAtPurchase.StringFixed(model.MoneyPlaces)
		if _, err := w.q.Exec(ctx, insertLine, order.ID, line.ProductID, line.Quantity, price); err != nil {
			return err
		}
	}
	return nil
}

func (w *orderWriter) MarkPaid(ctx context.Context, orderID int64) (*model.Order, bool, error) {
	const transition = `UPDATE orders SET status = $1, updated_at = NOW()
                        WHERE id = $2 AND status = $3
                        RETURNING id, user_id, order_date, status, total::text, updated_at`
	order, err := scanOrderHeader(w.q.QueryRow(ctx, transition, model.OrderStatusPaid, orderID, model.OrderStatusPending))
	if err == nil {
		return order, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	const current = `SELECT id, user_id, order_date, status, total::text, updated_at FROM orders WHERE id = $1`
	order, err = scanOrderHeader(w.q.QueryRow(ctx, current, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domainErrors.ErrOrderNotFound
		}
		return nil, false, err
	}
	return order, false, nil
}

// --- EventWriter implementation ---

func (w *eventWriter) Append(ctx context.Context, event model.OrderEvent) (bool, error) {
	const query = `INSERT INTO order_events (event_id, order_id, type, payload) VALUES ($1, $2, $3, $4)
                   ON CONFLICT (order_id, type) DO NOTHING`
	tag, err := w.q.Exec(ctx, query, event.EventID, event.OrderID, event.Type, []byte(event.Payload))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrderHeader(row pgx.Row) (*model.Order, error) {
	var (
		o     model.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status, &total, &o.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total of order %d: %w", o.ID, err)
	}
	o.Total = parsed
	return &o, nil
}
