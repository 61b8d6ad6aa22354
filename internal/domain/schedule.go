package domain

import "time"

// ScheduledTransition is one pending automatic fulfillment step: the order
// should move to Status at RunAt unless the order is cancelled first.
type ScheduledTransition struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"next_status"`
	RunAt   time.Time   `json:"run_at"`
}
