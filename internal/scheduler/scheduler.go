// Package scheduler arms delayed order-status transitions. Job rows live in
// the database (written transactionally with the order), so a restart re-arms
// whatever was pending; the in-process timers are just the firing mechanism.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/logger"
)

// Clock abstracts wall time so tests can drive virtual time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// JobStore persists pending transitions; implemented by the tracking repository.
type JobStore interface {
	ListPendingJobs(ctx context.Context) ([]domain.ScheduledTransition, error)
	MarkJobFired(ctx context.Context, orderID string, status domain.OrderStatus) error
	DeletePendingJobs(ctx context.Context, orderID string) error
}

// FireFunc applies one due transition. Errors are the callee's to report;
// a job is marked fired either way so replays don't pile up.
type FireFunc func(ctx context.Context, job domain.ScheduledTransition) error

type Scheduler struct {
	clock Clock
	store JobStore
	fire  FireFunc

	mu     sync.Mutex
	timers map[string]map[domain.OrderStatus]Timer
	closed bool
}

func New(clock Clock, store JobStore, fire FireFunc) *Scheduler {
	return &Scheduler{
		clock:  clock,
		store:  store,
		fire:   fire,
		timers: make(map[string]map[domain.OrderStatus]Timer),
	}
}

// Arm starts one timer per job. The rows are expected to already be
// persisted (the repository writes them inside the order-creation
// transaction); Arm only wires the in-process side.
func (s *Scheduler) Arm(jobs []domain.ScheduledTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	now := s.clock.Now()
	for _, job := range jobs {
		job := job
		delay := job.RunAt.Sub(now)
		if delay < 0 {
			// past due after a restart: fire as soon as possible
			delay = 0
		}
		if s.timers[job.OrderID] == nil {
			s.timers[job.OrderID] = make(map[domain.OrderStatus]Timer)
		}
		s.timers[job.OrderID][job.Status] = s.clock.AfterFunc(delay, func() {
			s.run(job)
		})
	}
}

func (s *Scheduler) run(job domain.ScheduledTransition) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if m, ok := s.timers[job.OrderID]; ok {
		delete(m, job.Status)
		if len(m) == 0 {
			delete(s.timers, job.OrderID)
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.fire(ctx, job); err != nil {
		logger.Warn("scheduled transition not applied", "order", job.OrderID, "status", job.Status, "err", err)
	}
	if err := s.store.MarkJobFired(ctx, job.OrderID, job.Status); err != nil {
		logger.Warn("mark job fired failed", "order", job.OrderID, "status", job.Status, "err", err)
	}
}

// Cancel stops every pending timer for the order and deletes its unfired
// rows. All of them, not just the soonest.
func (s *Scheduler) Cancel(ctx context.Context, orderID string) error {
	s.mu.Lock()
	for _, t := range s.timers[orderID] {
		t.Stop()
	}
	delete(s.timers, orderID)
	s.mu.Unlock()

	return s.store.DeletePendingJobs(ctx, orderID)
}

// Restore re-arms every unfired job after a process restart.
func (s *Scheduler) Restore(ctx context.Context) error {
	jobs, err := s.store.ListPendingJobs(ctx)
	if err != nil {
		return err
	}
	s.Arm(jobs)
	logger.Info("scheduler restored", "pending", len(jobs))
	return nil
}

// Close stops all timers; pending rows stay in the store for the next boot.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, m := range s.timers {
		for _, t := range m {
			t.Stop()
		}
	}
	s.timers = make(map[string]map[domain.OrderStatus]Timer)
}

// Steps builds the standard fulfillment plan for a new order relative to now.
func Steps(orderID string, now time.Time, paymentDelay, processingDelay, shippedDelay, deliveredDelay time.Duration) []domain.ScheduledTransition {
	return []domain.ScheduledTransition{
		{OrderID: orderID, Status: domain.StatusPaymentConfirmed, RunAt: now.Add(paymentDelay)},
		{OrderID: orderID, Status: domain.StatusProcessing, RunAt: now.Add(processingDelay)},
		{OrderID: orderID, Status: domain.StatusShipped, RunAt: now.Add(shippedDelay)},
		{OrderID: orderID, Status: domain.StatusDelivered, RunAt: now.Add(deliveredDelay)},
	}
}
