package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// EventFacade exposes the outbox operations required by the relay.
type EventFacade interface {
	PendingEvents(ctx context.Context, limit int) ([]model.OrderEvent, error)
	PublishEvent(ctx context.Context, event model.OrderEvent) error
}

// EventRelay drains the order events outbox into the broker.
type EventRelay struct {
	facade      EventFacade
	interval    time.Duration
	batchSize   int
	concurrency int
	logger      *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewEventRelay constructs EventRelay.
func NewEventRelay(facade EventFacade, interval time.Duration, batchSize, concurrency int, logger *slog.Logger) *EventRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &EventRelay{
		facade:      facade,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start launches the relay loop.
func (r *EventRelay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(runCtx)
}

// Stop waits for the in-flight batch to finish.
func (r *EventRelay) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *EventRelay) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain full batches back to back; a short batch means the outbox is empty.
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil || n < r.batchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch of pending events and returns how many were claimed.
func (r *EventRelay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.facade.PendingEvents(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("claim pending events failed", slog.String("error", err.Error()))
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, event := range events {
		g.Go(func() error {
			if err := r.facade.PublishEvent(gctx, event); err != nil {
				r.logger.Warn("order event not relayed",
					slog.String("event_id", event.EventID),
					slog.Int64("order_id", event.OrderID),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return len(events), g.Wait()
}
