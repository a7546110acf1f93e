package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// WorkerFacadeStub mimics the inbox and outbox operations used by background workers.
type WorkerFacadeStub struct {
	Due       [][]model.StoredNotification
	DueFn     func(context.Context, int) ([]model.StoredNotification, error)
	ProcessFn func(context.Context, model.StoredNotification) error

	Pending   [][]model.OrderEvent
	PendingFn func(context.Context, int) ([]model.OrderEvent, error)
	PublishFn func(context.Context, model.OrderEvent) error

	Processed []model.StoredNotification
	Published []model.OrderEvent

	mu           sync.Mutex
	dueCalls     int32
	pendingCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// DueNotifications returns batches from the configured queue.
func (s *WorkerFacadeStub) DueNotifications(ctx context.Context, limit int) ([]model.StoredNotification, error) {
	if s.DueFn != nil {
		return s.DueFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.dueCalls, 1)
	if int(call) <= len(s.Due) {
		return s.Due[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ProcessNotification records the notification unless ProcessFn fails.
func (s *WorkerFacadeStub) ProcessNotification(ctx context.Context, n model.StoredNotification) error {
	if s.ProcessFn != nil {
		if err := s.ProcessFn(ctx, n); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed = append(s.Processed, n)
	return nil
}

// PendingEvents returns batches from the configured queue.
func (s *WorkerFacadeStub) PendingEvents(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.pendingCalls, 1)
	if int(call) <= len(s.Pending) {
		return s.Pending[call-1], nil
	}
	return nil, nil
}

// PublishEvent records the event unless PublishFn fails.
func (s *WorkerFacadeStub) PublishEvent(ctx context.Context, event model.OrderEvent) error {
	if s.PublishFn != nil {
		if err := s.PublishFn(ctx, event); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Published = append(s.Published, event)
	return nil
}

// PendingCalls reports how many times PendingEvents was invoked.
func (s *WorkerFacadeStub) PendingCalls() int {
	return int(atomic.LoadInt32(&s.pendingCalls))
}
