package usecase

import (
	"io"
	"log/slog"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/metrics"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCheckout(store *testhelpers.MemoryStore, opts CheckoutOptions) *CheckoutUseCase {
	uc := NewCheckoutUseCase(store, opts, metrics.New(), discardLogger())
	uc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return uc
}

func newOrders(store *testhelpers.MemoryStore) *OrderUseCase {
	return NewOrderUseCase(store.Orders(), store, metrics.New(), discardLogger())
}

// seedCatalog creates user 1, admin 99 and products 10 (10.50 x5) and 20 (4.00 x3).
func seedCatalog(store *testhelpers.MemoryStore) {
	store.SeedUser(1, model.RoleUser)
	store.SeedUser(99, model.RoleAdmin)
	store.SeedProduct(10, "10.50", 5)
	store.SeedProduct(20, "4.00", 3)
}

func countEvents(events []model.OrderEvent, orderID int64, eventType model.OrderEventType) int {
	n := 0
	for _, e := range events {
		if e.OrderID == orderID && e.Type == eventType {
			n++
		}
	}
	return n
}
