package domain

// OrderStatus is the lifecycle state of a tracked order.
type OrderStatus string

const (
	StatusCreated          OrderStatus = "order_created"
	StatusPaymentConfirmed OrderStatus = "payment_confirmed"
	StatusProcessing       OrderStatus = "processing"
	StatusShipped          OrderStatus = "shipped"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
)

// forward is the canonical fulfillment path; cancelled is handled separately.
var forward = map[OrderStatus]OrderStatus{
	StatusCreated:          StatusPaymentConfirmed,
	StatusPaymentConfirmed: StatusProcessing,
	StatusProcessing:       StatusShipped,
	StatusShipped:          StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusPaymentConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the forward successor of s, if any.
func (s OrderStatus) Next() (OrderStatus, bool) {
	n, ok := forward[s]
	return n, ok
}

// CanTransitionTo reports whether moving from s to the given status is a legal
// step: the single forward successor, or cancelled from any non-terminal state.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return forward[s] == to
}

// Description is the human-readable line recorded on the activity timeline.
func (s OrderStatus) Description() string {
	switch s {
	case StatusCreated:
		return "Order placed and confirmed"
	case StatusPaymentConfirmed:
		return "Payment received"
	case StatusProcessing:
		return "Order is being prepared for shipment"
	case StatusShipped:
		return "Order handed to the carrier"
	case StatusDelivered:
		return "Order delivered"
	case StatusCancelled:
		return "Order cancelled"
	}
	return string(s)
}
