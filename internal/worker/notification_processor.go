package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderflow/internal/adapter/gateway"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// NotificationFacade exposes the webhook inbox operations required by the processor.
type NotificationFacade interface {
	DueNotifications(ctx context.Context, limit int) ([]model.StoredNotification, error)
	ProcessNotification(ctx context.Context, n model.StoredNotification) error
}

// NotificationProcessor re-confirms recorded payment notifications with the gateway concurrently.
type NotificationProcessor struct {
	facade       NotificationFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.StoredNotification
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewNotificationProcessor constructs the notification worker pool.
func NewNotificationProcessor(facade NotificationFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *NotificationProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &NotificationProcessor{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.StoredNotification, batchSize*workers),
	}
}

// Start launches background processing.
func (p *NotificationProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *NotificationProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *NotificationProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *NotificationProcessor) fetchAndDispatch(ctx context.Context) {
	due, err := p.facade.DueNotifications(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("claim due notifications failed", slog.String("error", err.Error()))
		return
	}
	for _, n := range due {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- n:
		}
	}
}

func (p *NotificationProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handle(ctx, n)
		}
	}
}

func (p *NotificationProcessor) handle(ctx context.Context, n model.StoredNotification) {
	err := p.facade.ProcessNotification(ctx, n)
	if err == nil {
		return
	}

	var limited gateway.TooManyRequestsError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		p.logger.Warn("gateway rate limited", slog.Duration("retry_after", limited.RetryAfter))
		timer := time.NewTimer(limited.RetryAfter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		return
	}
	p.logger.Debug("notification not applied",
		slog.String("payment_id", n.PaymentID),
		slog.Int("attempt", n.Attempts),
		slog.String("error", err.Error()))
}
