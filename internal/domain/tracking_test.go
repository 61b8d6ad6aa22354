package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderTracking_StartsWithCreatedActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewOrderTracking("BLK123", "a@b.com", decimal.NewFromInt(500), nil, now)

	require.Len(t, tr.Activities, 1)
	assert.Equal(t, StatusCreated, tr.CurrentStatus)
	assert.Equal(t, StatusCreated, tr.Activities[0].Type)
	assert.Equal(t, "BLK123", tr.Activities[0].OrderID)
	assert.Equal(t, now, tr.Activities[0].Timestamp)
	assert.NotEqual(t, tr.Activities[0].ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestAppend_ForwardPath(t *testing.T) {
	now := time.Now().UTC()
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, now)

	steps := []OrderStatus{StatusPaymentConfirmed, StatusProcessing, StatusShipped, StatusDelivered}
	for i, s := range steps {
		var meta *ShipmentMeta
		if s == StatusShipped {
			meta = &ShipmentMeta{TrackingNumber: "AQ123", Carrier: "meest"}
		}
		a, err := tr.Append(s, "", meta, now.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, s, a.Type)
		assert.Equal(t, s, tr.CurrentStatus)
		assert.Len(t, tr.Activities, i+2)
	}

	num, ok := tr.TrackingNumber()
	require.True(t, ok)
	assert.Equal(t, "AQ123", num)
}

func TestAppend_RejectsSkippedState(t *testing.T) {
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, time.Now())

	// shipped directly after creation skips payment_confirmed and processing
	_, err := tr.Append(StatusShipped, "", nil, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, tr.Activities, 1)
	assert.Equal(t, StatusCreated, tr.CurrentStatus)
}

func TestAppend_RejectsBackwardAndUnknown(t *testing.T) {
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, time.Now())
	_, err := tr.Append(StatusPaymentConfirmed, "", nil, time.Now())
	require.NoError(t, err)

	_, err = tr.Append(StatusCreated, "", nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = tr.Append(OrderStatus("lost"), "", nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppend_TerminalStatesAreImmutable(t *testing.T) {
	now := time.Now()

	delivered := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, now)
	for _, s := range []OrderStatus{StatusPaymentConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		_, err := delivered.Append(s, "", nil, now)
		require.NoError(t, err)
	}
	before := len(delivered.Activities)
	for _, s := range []OrderStatus{StatusPaymentConfirmed, StatusCancelled, StatusDelivered} {
		_, err := delivered.Append(s, "", nil, now)
		assert.ErrorIs(t, err, ErrInvalidTransition, "from delivered to %s", s)
	}
	assert.Len(t, delivered.Activities, before)

	cancelled := NewOrderTracking("o2", "a@b.com", decimal.Zero, nil, now)
	_, err := cancelled.Append(StatusCancelled, "customer request", nil, now)
	require.NoError(t, err)
	_, err = cancelled.Append(StatusPaymentConfirmed, "", nil, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppend_CancelFromAnyNonTerminal(t *testing.T) {
	now := time.Now()
	reach := map[OrderStatus][]OrderStatus{
		StatusCreated:          {},
		StatusPaymentConfirmed: {StatusPaymentConfirmed},
		StatusProcessing:       {StatusPaymentConfirmed, StatusProcessing},
		StatusShipped:          {StatusPaymentConfirmed, StatusProcessing, StatusShipped},
	}
	for from, path := range reach {
		tr := NewOrderTracking("o-"+string(from), "a@b.com", decimal.Zero, nil, now)
		for _, s := range path {
			_, err := tr.Append(s, "", nil, now)
			require.NoError(t, err)
		}
		require.Equal(t, from, tr.CurrentStatus)
		_, err := tr.Append(StatusCancelled, "", nil, now)
		assert.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, StatusCancelled, tr.CurrentStatus)
	}
}

func TestAppend_ShipmentMetaOnlyOnShipped(t *testing.T) {
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, time.Now())
	_, err := tr.Append(StatusPaymentConfirmed, "", &ShipmentMeta{TrackingNumber: "AQ1"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, tr.Activities, 1)
}

func TestAppend_TimestampsNonDecreasing(t *testing.T) {
	now := time.Now()
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, now)
	_, err := tr.Append(StatusPaymentConfirmed, "", nil, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = tr.Append(StatusProcessing, "", nil, now.Add(2*time.Minute))
	require.NoError(t, err)

	for i := 1; i < len(tr.Activities); i++ {
		assert.False(t, tr.Activities[i].Timestamp.Before(tr.Activities[i-1].Timestamp))
	}
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now().UTC()
	tr := NewOrderTracking("o1", "a@b.com", decimal.NewFromInt(100),
		[]OrderItem{{Name: "Still water", Size: "500ml", Quantity: 10}}, now)
	eta := now.Add(24 * time.Hour)
	tr.EstimatedDelivery = &eta
	for _, s := range []OrderStatus{StatusPaymentConfirmed, StatusProcessing} {
		_, err := tr.Append(s, "", nil, now)
		require.NoError(t, err)
	}
	_, err := tr.Append(StatusShipped, "", &ShipmentMeta{TrackingNumber: "AQ-1", Carrier: "meest"}, now)
	require.NoError(t, err)

	c := tr.Clone()
	c.CurrentStatus = StatusCancelled
	c.Activities[0].Description = "scribbled"
	c.Activities[3].Shipment.TrackingNumber = "HACKED"
	c.Items[0].Quantity = 9999
	*c.EstimatedDelivery = now.Add(999 * time.Hour)

	assert.Equal(t, StatusShipped, tr.CurrentStatus)
	assert.Equal(t, StatusCreated.Description(), tr.Activities[0].Description)
	assert.Equal(t, "AQ-1", tr.Activities[3].Shipment.TrackingNumber)
	assert.Equal(t, 10, tr.Items[0].Quantity)
	assert.Equal(t, eta, *tr.EstimatedDelivery)

	// appending to a clone leaves the original's timeline alone
	_, err = tr.Clone().Append(StatusDelivered, "", nil, now)
	require.NoError(t, err)
	assert.Len(t, tr.Activities, 4)
}

func TestErrInvalidTransitionIsRecoverable(t *testing.T) {
	tr := NewOrderTracking("o1", "a@b.com", decimal.Zero, nil, time.Now())
	_, err := tr.Append(StatusDelivered, "", nil, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// registry state untouched, a legal append still works afterwards
	_, err = tr.Append(StatusPaymentConfirmed, "", nil, time.Now())
	assert.NoError(t, err)
}
