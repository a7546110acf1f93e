package test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// MemoryStore is an in-memory repository.Factory with PostgreSQL-like error semantics.
// InTx holds a store-wide lock for the whole transaction and restores a snapshot on failure.
type MemoryStore struct {
	// FailFn, when set, is consulted before every repository call with the operation name
	// (for example "stock.decrement"); a non-nil result aborts that call.
	FailFn func(op string) error

	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

type memoryState struct {
	users         map[int64]model.User
	products      map[int64]model.Product
	carts         map[int64][]model.CartLine
	orders        map[int64]model.Order
	events        []model.OrderEvent
	eventLeases   map[int64]time.Time
	published     map[int64]bool
	notifications map[int64]*StoredNotificationState
	nextOrderID   int64
	nextEventID   int64
	nextNoticeID  int64
}

// StoredNotificationState is the inbox row as kept by MemoryStore.
type StoredNotificationState struct {
	model.StoredNotification
	State     model.NotificationState
	LastError string
	NextAt    time.Time
}

var _ repository.Factory = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			users:         make(map[int64]model.User),
			products:      make(map[int64]model.Product),
			carts:         make(map[int64][]model.CartLine),
			orders:        make(map[int64]model.Order),
			eventLeases:   make(map[int64]time.Time),
			published:     make(map[int64]bool),
			notifications: make(map[int64]*StoredNotificationState),
		},
		now: time.Now,
	}
}

// SeedUser registers a user.
func (s *MemoryStore) SeedUser(id int64, role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[id] = model.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id), Role: role, CreatedAt: s.now()}
}

// SeedProduct registers a product with a price such as "10.50".
func (s *MemoryStore) SeedProduct(id int64, price string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[id] = model.Product{ID: id, Name: fmt.Sprintf("Product %d", id), Price: decimal.RequireFromString(price), Stock: stock}
}

// SetPrice changes the catalog price of a product.
func (s *MemoryStore) SetPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.products[id]
	p.Price = decimal.RequireFromString(price)
	s.state.products[id] = p
}

// SetCart replaces the cart of a user.
func (s *MemoryStore) SetCart(userID int64, lines ...model.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.carts[userID] = slices.Clone(lines)
}

// SeedOrder stores an order as is and returns its id.
func (s *MemoryStore) SeedOrder(order model.Order) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextOrderID++
	order.ID = s.state.nextOrderID
	if order.OrderDate.IsZero() {
		order.OrderDate = s.now()
	}
	order.UpdatedAt = order.OrderDate
	s.state.orders[order.ID] = order
	return order.ID
}

// Product returns the stored product.
func (s *MemoryStore) Product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id]
}

// CartLines returns the stored cart of a user.
func (s *MemoryStore) CartLines(userID int64) []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.carts[userID])
}

// StoredOrders returns every stored order ordered by id.
func (s *MemoryStore) StoredOrders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Sorted(maps.Keys(s.state.orders))
	result := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneOrder(s.state.orders[id]))
	}
	return result
}

// OutboxEvents returns every appended event.
func (s *MemoryStore) OutboxEvents() []model.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.events)
}

// Published reports whether the event was marked as published.
func (s *MemoryStore) Published(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.published[id]
}

// Notification returns the inbox row recorded for a gateway payment id.
func (s *MemoryStore) Notification(paymentID string) (StoredNotificationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.state.notifications {
		if n.PaymentID == paymentID {
			return *n, true
		}
	}
	return StoredNotificationState{}, false
}

// SetNotificationDue makes a recorded notification claimable immediately.
func (s *MemoryStore) SetNotificationDue(paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.state.notifications {
		if n.PaymentID == paymentID {
			n.NextAt = s.now().Add(-time.Second)
		}
	}
}

func (s *MemoryStore) fail(op string) error {
	if s.FailFn != nil {
		return s.FailFn(op)
	}
	return nil
}

// InTx runs fn while holding the store lock; state is restored when fn or ctx fails.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	err := fn(ctx, &memoryTx{store: s})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Orders returns the non-transactional order repository.
func (s *MemoryStore) Orders() repository.OrderRepository {
	return &memoryOrders{store: s}
}

// Notifications returns the webhook inbox repository.
func (s *MemoryStore) Notifications() repository.NotificationRepository {
	return &memoryNotifications{store: s}
}

// Events returns the outbox drain repository.
func (s *MemoryStore) Events() repository.EventRepository {
	return &memoryEvents{store: s}
}

func (st memoryState) clone() memoryState {
	c := st
	c.users = maps.Clone(st.users)
	c.products = maps.Clone(st.products)
	c.carts = make(map[int64][]model.CartLine, len(st.carts))
	for k, v := range st.carts {
		c.carts[k] = slices.Clone(v)
	}
	c.orders = make(map[int64]model.Order, len(st.orders))
	for k, v := range st.orders {
		c.orders[k] = cloneOrder(v)
	}
	c.events = slices.Clone(st.events)
	c.eventLeases = maps.Clone(st.eventLeases)
	c.published = maps.Clone(st.published)
	c.notifications = make(map[int64]*StoredNotificationState, len(st.notifications))
	for k, v := range st.notifications {
		n := *v
		c.notifications[k] = &n
	}
	return c
}

func cloneOrder(o model.Order) model.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Carts() repository.CartStore    { return t }
func (t *memoryTx) Stock() repository.StockLedger  { return (*memoryStock)(t) }
func (t *memoryTx) Users() repository.UserReader   { return (*memoryUsers)(t) }
func (t *memoryTx) Orders() repository.OrderWriter { return (*memoryOrderWriter)(t) }
func (t *memoryTx) Events() repository.EventWriter { return (*memoryEventWriter)(t) }

func (t *memoryTx) Lines(ctx context.Context, userID int64) ([]model.CartLine, error) {
	if err := t.store.fail("cart.lines"); err != nil {
		return nil, err
	}
	return slices.Clone(t.store.state.carts[userID]), nil
}

func (t *memoryTx) Clear(ctx context.Context, userID int64) error {
	if err := t.store.fail("cart.clear"); err != nil {
		return err
	}
	delete(t.store.state.carts, userID)
	return nil
}

type memoryStock memoryTx

func (l *memoryStock) Reserve(ctx context.Context, productID int64, quantity int) (decimal.Decimal, error) {
	if err := l.store.fail("stock.reserve"); err != nil {
		return decimal.Zero, err
	}
	p, ok := l.store.state.products[productID]
	if !ok {
		return decimal.Zero, &domainErrors.ProductNotFoundError{ProductID: productID}
	}
	if p.Stock < quantity {
		return decimal.Zero, &domainErrors.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.Stock}
	}
	return p.Price, nil
}

func (l *memoryStock) Decrement(ctx context.Context, productID int64, quantity int) error {
	if err := l.store.fail("stock.decrement"); err != nil {
		return err
	}
	p, ok := l.store.state.products[productID]
	if !ok || p.Stock < quantity {
		return &domainErrors.InsufficientStockError{ProductID: productID, Requested: quantity}
	}
	p.Stock -= quantity
	l.store.state.products[productID] = p
	return nil
}

type memoryUsers memoryTx

func (r *memoryUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if err := r.store.fail("users.get"); err != nil {
		return nil, err
	}
	u, ok := r.store.state.users[id]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	return &u, nil
}

type memoryOrderWriter memoryTx

func (w *memoryOrderWriter) Create(ctx context.Context, order *model.Order) error {
	if err := w.store.fail("orders.create"); err != nil {
		return err
	}
	st := &w.store.state
	st.nextOrderID++
	order.ID = st.nextOrderID
	order.OrderDate = w.store.now()
	order.UpdatedAt = order.OrderDate
	st.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (w *memoryOrderWriter) MarkPaid(ctx context.Context, orderID int64) (*model.Order, bool, error) {
	if err := w.store.fail("orders.mark_paid"); err != nil {
		return nil, false, err
	}
	o, ok := w.store.state.orders[orderID]
	if !ok {
		return nil, false, domainErrors.ErrOrderNotFound
	}
	changed := false
	if o.Status == model.OrderStatusPending {
		o.Status = model.OrderStatusPaid
		o.UpdatedAt = w.store.now()
		w.store.state.orders[orderID] = o
		changed = true
	}
	header := o
	header.Lines = nil
	return &header, changed, nil
}

type memoryEventWriter memoryTx

func (w *memoryEventWriter) Append(ctx context.Context, event model.OrderEvent) (bool, error) {
	if err := w.store.fail("events.append"); err != nil {
		return false, err
	}
	st := &w.store.state
	for _, e := range st.events {
		if e.OrderID == event.OrderID && e.Type == event.Type {
			return false, nil
		}
	}
	st.nextEventID++
	event.ID = st.nextEventID
	st.events = append(st.events, event)
	return true, nil
}

type memoryOrders struct {
	store *MemoryStore
}

func (r *memoryOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if err := r.store.fail("orders.get"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.state.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *memoryOrders) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.list("orders.list_by_user", func(o model.Order) bool { return o.UserID == userID })
}

func (r *memoryOrders) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list("orders.list_all", func(model.Order) bool { return true })
}

func (r *memoryOrders) list(op string, keep func(model.Order) bool) ([]model.Order, error) {
	if err := r.store.fail(op); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []model.Order
	for _, o := range r.store.state.orders {
		if keep(o) {
			result = append(result, cloneOrder(o))
		}
	}
	slices.SortFunc(result, func(a, b model.Order) int {
		if c := b.OrderDate.Compare(a.OrderDate); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return result, nil
}

func (r *memoryOrders) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	if err := r.store.fail("orders.update_status"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.state.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = r.store.now()
	r.store.state.orders[id] = o
	o = cloneOrder(o)
	return &o, nil
}

type memoryNotifications struct {
	store *MemoryStore
}

func (r *memoryNotifications) Record(ctx context.Context, n model.PaymentNotification, lease time.Duration) (*model.StoredNotification, error) {
	if err := r.store.fail("notifications.record"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	st := &r.store.state
	now := r.store.now()
	for _, existing := range st.notifications {
		if existing.PaymentID == n.PaymentID {
			existing.Topic = n.Topic
			existing.RequestID = n.RequestID
			existing.State = model.NotificationStatePending
			existing.Attempts = 1
			existing.LastError = ""
			existing.NextAt = now.Add(lease)
			stored := existing.StoredNotification
			return &stored, nil
		}
	}
	st.nextNoticeID++
	row := &StoredNotificationState{
		StoredNotification: model.StoredNotification{
			ID:        st.nextNoticeID,
			PaymentID: n.PaymentID,
			Topic:     n.Topic,
			RequestID: n.RequestID,
			Attempts:  1,
			CreatedAt: now,
		},
		State:  model.NotificationStatePending,
		NextAt: now.Add(lease),
	}
	st.notifications[row.ID] = row
	stored := row.StoredNotification
	return &stored, nil
}

func (r *memoryNotifications) ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]model.StoredNotification, error) {
	if err := r.store.fail("notifications.claim"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := r.store.now()
	var due []*StoredNotificationState
	for _, n := range r.store.state.notifications {
		if n.State == model.NotificationStatePending && !n.NextAt.After(now) {
			due = append(due, n)
		}
	}
	slices.SortFunc(due, func(a, b *StoredNotificationState) int {
		if c := a.NextAt.Compare(b.NextAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	claimed := make([]model.StoredNotification, 0, len(due))
	for _, n := range due {
		n.Attempts++
		n.NextAt = now.Add(lease)
		claimed = append(claimed, n.StoredNotification)
	}
	return claimed, nil
}

func (r *memoryNotifications) MarkDone(ctx context.Context, id int64) error {
	return r.update("notifications.done", id, func(n *StoredNotificationState) {
		n.State = model.NotificationStateDone
		n.LastError = ""
	})
}

func (r *memoryNotifications) MarkRetry(ctx context.Context, id int64, reason string, next time.Time) error {
	return r.update("notifications.retry", id, func(n *StoredNotificationState) {
		n.LastError = reason
		n.NextAt = next
	})
}

func (r *memoryNotifications) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.update("notifications.failed", id, func(n *StoredNotificationState) {
		n.State = model.NotificationStateFailed
		n.LastError = reason
	})
}

func (r *memoryNotifications) update(op string, id int64, fn func(*StoredNotificationState)) error {
	if err := r.store.fail(op); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if n, ok := r.store.state.notifications[id]; ok {
		fn(n)
	}
	return nil
}

type memoryEvents struct {
	store *MemoryStore
}

func (r *memoryEvents) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OrderEvent, error) {
	if err := r.store.fail("events.claim"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	st := &r.store.state
	now := r.store.now()
	var claimed []model.OrderEvent
	for _, e := range st.events {
		if len(claimed) == limit {
			break
		}
		if st.published[e.ID] || st.eventLeases[e.ID].After(now) {
			continue
		}
		st.eventLeases[e.ID] = now.Add(lease)
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (r *memoryEvents) MarkPublished(ctx context.Context, id int64) error {
	if err := r.store.fail("events.mark_published"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.state.published[id] = true
	return nil
}
