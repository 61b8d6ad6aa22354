package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluespring/aqua-orders/internal/domain"
)

func sampleTracking(t *testing.T) *domain.OrderTracking {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr := domain.NewOrderTracking("BLK123", "a@b.com", decimal.RequireFromString("500.00"), nil, now)
	_, err := tr.Append(domain.StatusPaymentConfirmed, "", nil, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = tr.Append(domain.StatusProcessing, "", nil, now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = tr.Append(domain.StatusShipped, "", &domain.ShipmentMeta{TrackingNumber: "AQ-42", Carrier: "meest"}, now.Add(72*time.Hour))
	require.NoError(t, err)
	return tr
}

func TestRenderTimeline(t *testing.T) {
	tr := sampleTracking(t)

	body, err := RenderTimeline(tr)
	require.NoError(t, err)

	assert.Contains(t, body, "BLK123")
	assert.Contains(t, body, "Carrier tracking number: AQ-42")
	assert.Contains(t, body, "Order placed and confirmed")
	assert.Contains(t, body, "Payment received")
	assert.Contains(t, body, "handed to the carrier")
	assert.Contains(t, body, "2026-03-01 09:00 UTC")
	assert.Contains(t, body, "Order total: 500.00")
}

func TestRenderTimeline_Idempotent(t *testing.T) {
	tr := sampleTracking(t)

	a, err := RenderTimeline(tr)
	require.NoError(t, err)
	b, err := RenderTimeline(tr)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderTimeline_NoShipmentNoTrackingLine(t *testing.T) {
	tr := domain.NewOrderTracking("BLK9", "a@b.com", decimal.Zero, nil, time.Now().UTC())
	body, err := RenderTimeline(tr)
	require.NoError(t, err)
	assert.NotContains(t, body, "Carrier tracking number")
}

func TestSubject(t *testing.T) {
	tr := sampleTracking(t)
	assert.Equal(t, "Order BLK123: Order handed to the carrier", Subject(tr))
}
