package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/logger"
	"github.com/bluespring/aqua-orders/internal/notify"
	"github.com/bluespring/aqua-orders/internal/repository"
	"github.com/bluespring/aqua-orders/internal/scheduler"
)

// Notifier is the email-equivalent sink for status updates. Delivery is
// best-effort from the tracker's point of view.
type Notifier interface {
	Send(ctx context.Context, e notify.Email) error
}

// Progression owns the delayed automatic transitions for new orders.
type Progression interface {
	Arm(jobs []domain.ScheduledTransition)
	Cancel(ctx context.Context, orderID string) error
}

// Clock is injected so tests control activity timestamps.
type Clock interface {
	Now() time.Time
}

// ScheduleDelays are the offsets of the automatic fulfillment steps relative
// to order creation.
type ScheduleDelays struct {
	PaymentConfirmed time.Duration
	Processing       time.Duration
	Shipped          time.Duration
	Delivered        time.Duration
}

// TrackingService owns the order registry: an in-memory cache over the
// repository, keyed by order id with a secondary index by customer email.
// Explicitly constructed, never a singleton; every instance is isolated.
type TrackingService struct {
	repo     repository.TrackingRepo
	notifier Notifier
	sched    Progression
	clock    Clock
	delays   ScheduleDelays

	mu         sync.RWMutex
	byID       map[string]*domain.OrderTracking
	byCustomer map[string][]string
}

func NewTrackingService(repo repository.TrackingRepo, notifier Notifier, sched Progression, clock Clock, delays ScheduleDelays) *TrackingService {
	return &TrackingService{
		repo:       repo,
		notifier:   notifier,
		sched:      sched,
		clock:      clock,
		delays:     delays,
		byID:       make(map[string]*domain.OrderTracking),
		byCustomer: make(map[string][]string),
	}
}

// CreateOrderTracking registers a freshly paid order: synthesizes the
// order_created activity, persists everything with the scheduled transitions
// in one transaction, arms the timers and sends the confirmation email.
// Creating the same order twice is a caller error.
func (s *TrackingService) CreateOrderTracking(ctx context.Context, orderID, customerEmail string, total decimal.Decimal, items []domain.OrderItem) (*domain.OrderTracking, error) {
	s.mu.RLock()
	_, exists := s.byID[orderID]
	s.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, orderID)
	}

	now := s.clock.Now()
	t := domain.NewOrderTracking(orderID, customerEmail, total, items, now)
	eta := now.Add(s.delays.Delivered)
	t.EstimatedDelivery = &eta

	jobs := scheduler.Steps(orderID, now, s.delays.PaymentConfirmed, s.delays.Processing, s.delays.Shipped, s.delays.Delivered)

	if err := s.repo.CreateTracking(ctx, t, jobs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.byID[orderID] = t
	s.byCustomer[customerEmail] = append(s.byCustomer[customerEmail], orderID)
	snapshot := t.Clone()
	s.mu.Unlock()

	s.sched.Arm(jobs)
	s.sendUpdate(ctx, snapshot)
	return snapshot, nil
}

// AddOrderActivity applies one status transition. The state machine is
// enforced: only the forward successor or a cancellation of a non-terminal
// order is accepted.
func (s *TrackingService) AddOrderActivity(ctx context.Context, orderID string, status domain.OrderStatus, description string) error {
	// the cache holds only recent orders; pull older ones from the repo first
	if _, err := s.GetOrderTracking(ctx, orderID); err != nil {
		return err
	}

	snapshot, err := s.applyActivity(ctx, orderID, status, description)
	if err != nil {
		return err
	}

	s.sendUpdate(ctx, snapshot)
	return nil
}

// applyActivity holds the registry lock across validate, persist and cache
// commit, so appends to one order are fully serialized. The cached record is
// never mutated in place: the transition runs on a clone, and the clone
// replaces the map entry only after the store accepted it. A failed persist
// therefore leaves the cache exactly as it was.
func (s *TrackingService) applyActivity(ctx context.Context, orderID string, status domain.OrderStatus, description string) (*domain.OrderTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}

	var shipment *domain.ShipmentMeta
	if status == domain.StatusShipped {
		shipment = &domain.ShipmentMeta{
			TrackingNumber: newTrackingNumber(),
			Carrier:        "meest",
		}
	}

	next := t.Clone()
	act, err := next.Append(status, description, shipment, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendActivity(ctx, act); err != nil {
		return nil, err
	}

	s.byID[orderID] = next
	return next.Clone(), nil
}

// CancelOrder moves a non-terminal order to cancelled and drops every pending
// scheduled transition for it.
func (s *TrackingService) CancelOrder(ctx context.Context, orderID, reason string) error {
	if err := s.AddOrderActivity(ctx, orderID, domain.StatusCancelled, reason); err != nil {
		return err
	}
	if err := s.sched.Cancel(ctx, orderID); err != nil {
		logger.Warn("cancel pending transitions failed", "order", orderID, "err", err)
	}
	return nil
}

// GetOrderTracking returns a snapshot of the tracking for one order, hitting
// the repo on a cache miss. Callers always get a deep copy, never the live
// registry record.
func (s *TrackingService) GetOrderTracking(ctx context.Context, orderID string) (*domain.OrderTracking, error) {
	s.mu.RLock()
	if t, ok := s.byID[orderID]; ok {
		snapshot := t.Clone()
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	t, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}

	s.index(t)
	return t.Clone(), nil
}

// GetCustomerOrders returns snapshots of every tracking for the customer,
// newest first in repo order on a miss, index order otherwise.
func (s *TrackingService) GetCustomerOrders(ctx context.Context, email string) ([]*domain.OrderTracking, error) {
	s.mu.RLock()
	ids, ok := s.byCustomer[email]
	if ok {
		out := make([]*domain.OrderTracking, 0, len(ids))
		for _, id := range ids {
			if t, found := s.byID[id]; found {
				out = append(out, t.Clone())
			}
		}
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	list, err := s.repo.ListByCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.OrderTracking, 0, len(list))
	for _, t := range list {
		s.index(t)
		out = append(out, t.Clone())
	}
	return out, nil
}

// RestoreCache reloads the most recent orders into memory after a restart.
func (s *TrackingService) RestoreCache(ctx context.Context, limit int) error {
	list, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.OrderTracking, len(list))
	byCustomer := make(map[string][]string)
	for _, t := range list {
		byID[t.OrderID] = t
		byCustomer[t.CustomerEmail] = append(byCustomer[t.CustomerEmail], t.OrderID)
	}

	s.mu.Lock()
	s.byID = byID
	s.byCustomer = byCustomer
	s.mu.Unlock()

	logger.Info("tracking cache restored", "orders", len(list))
	return nil
}

func (s *TrackingService) index(t *domain.OrderTracking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[t.OrderID]; ok {
		return
	}
	s.byID[t.OrderID] = t
	s.byCustomer[t.CustomerEmail] = append(s.byCustomer[t.CustomerEmail], t.OrderID)
}

// sendUpdate renders the timeline from a snapshot and hands it to the
// notifier. Failures are logged, never surfaced: notification loss must not
// fail a transition.
func (s *TrackingService) sendUpdate(ctx context.Context, t *domain.OrderTracking) {
	body, err := notify.RenderTimeline(t)
	if err != nil {
		logger.Warn("render notification failed", "order", t.OrderID, "err", err)
		return
	}

	if err := s.notifier.Send(ctx, notify.Email{To: t.CustomerEmail, Subject: notify.Subject(t), Body: body}); err != nil {
		logger.Warn("notification send failed", "order", t.OrderID, "to", t.CustomerEmail, "err", err)
	}
}

func newTrackingNumber() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "AQ-" + fmt.Sprint(time.Now().UnixNano())
	}
	return "AQ-" + strings.ToUpper(hex.EncodeToString(b))
}
