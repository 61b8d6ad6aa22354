package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order already tracked")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderItem is one priced line of the paid order, carried for the
// confirmation email and the admin view.
type OrderItem struct {
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ShipmentMeta is the only structured payload an activity can carry, and only
// the shipped transition carries it.
type ShipmentMeta struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

// OrderActivity is one immutable, timestamped record of a status change.
type OrderActivity struct {
	ID          uuid.UUID     `json:"id"`
	OrderID     string        `json:"order_id"`
	Type        OrderStatus   `json:"activity_type"`
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
	Shipment    *ShipmentMeta `json:"shipment,omitempty"`
}

// OrderTracking is the full record for one order: current status plus the
// append-only activity timeline. The current status always equals the type of
// the last activity.
type OrderTracking struct {
	OrderID           string          `json:"order_id"`
	CustomerEmail     string          `json:"customer_email"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Items             []OrderItem     `json:"items"`
	CurrentStatus     OrderStatus     `json:"current_status"`
	Activities        []OrderActivity `json:"activities"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
}

// NewOrderTracking creates a tracking in its only legal starting state:
// order_created, with the first activity already appended.
func NewOrderTracking(orderID, customerEmail string, total decimal.Decimal, items []OrderItem, now time.Time) *OrderTracking {
	t := &OrderTracking{
		OrderID:       orderID,
		CustomerEmail: customerEmail,
		TotalAmount:   total,
		Items:         items,
		CurrentStatus: StatusCreated,
	}
	t.Activities = append(t.Activities, OrderActivity{
		ID:          uuid.New(),
		OrderID:     orderID,
		Type:        StatusCreated,
		Description: StatusCreated.Description(),
		Timestamp:   now,
	})
	return t
}

// Append validates the transition against the state machine and, on success,
// appends a new activity and advances CurrentStatus. Shipment metadata is
// accepted only on the shipped transition.
func (t *OrderTracking) Append(status OrderStatus, description string, shipment *ShipmentMeta, now time.Time) (*OrderActivity, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if !t.CurrentStatus.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.CurrentStatus, status)
	}
	if shipment != nil && status != StatusShipped {
		return nil, fmt.Errorf("%w: shipment metadata only allowed on %s", ErrInvalidTransition, StatusShipped)
	}
	if description == "" {
		description = status.Description()
	}

	a := OrderActivity{
		ID:          uuid.New(),
		OrderID:     t.OrderID,
		Type:        status,
		Description: description,
		Timestamp:   now,
		Shipment:    shipment,
	}
	t.Activities = append(t.Activities, a)
	t.CurrentStatus = status
	return &t.Activities[len(t.Activities)-1], nil
}

// Clone returns a deep copy. The tracker hands out clones so callers can
// read or marshal them without holding the registry lock.
func (t *OrderTracking) Clone() *OrderTracking {
	c := *t
	c.Activities = make([]OrderActivity, len(t.Activities))
	copy(c.Activities, t.Activities)
	for i := range c.Activities {
		if s := c.Activities[i].Shipment; s != nil {
			sc := *s
			c.Activities[i].Shipment = &sc
		}
	}
	if t.Items != nil {
		c.Items = append([]OrderItem(nil), t.Items...)
	}
	if t.EstimatedDelivery != nil {
		eta := *t.EstimatedDelivery
		c.EstimatedDelivery = &eta
	}
	return &c
}

// TrackingNumber returns the carrier tracking number if the order has shipped.
func (t *OrderTracking) TrackingNumber() (string, bool) {
	for i := len(t.Activities) - 1; i >= 0; i-- {
		if s := t.Activities[i].Shipment; s != nil {
			return s.TrackingNumber, true
		}
	}
	return "", false
}
