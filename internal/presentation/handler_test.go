package presentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluespring/aqua-orders/internal/application"
	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/logger"
	"github.com/bluespring/aqua-orders/internal/notify"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type memRepo struct {
	created map[string]*domain.OrderTracking
}

func (r *memRepo) CreateTracking(ctx context.Context, t *domain.OrderTracking, jobs []domain.ScheduledTransition) error {
	r.created[t.OrderID] = t
	return nil
}

func (r *memRepo) AppendActivity(ctx context.Context, a *domain.OrderActivity) error { return nil }

func (r *memRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.OrderTracking, error) {
	return r.created[orderID], nil
}

func (r *memRepo) ListByCustomer(ctx context.Context, email string) ([]*domain.OrderTracking, error) {
	var out []*domain.OrderTracking
	for _, t := range r.created {
		if t.CustomerEmail == email {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) ListRecent(ctx context.Context, limit int) ([]*domain.OrderTracking, error) {
	return nil, nil
}

func (r *memRepo) ListPendingJobs(ctx context.Context) ([]domain.ScheduledTransition, error) {
	return nil, nil
}

func (r *memRepo) MarkJobFired(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return nil
}

func (r *memRepo) DeletePendingJobs(ctx context.Context, orderID string) error { return nil }

type dropNotifier struct{}

func (dropNotifier) Send(ctx context.Context, e notify.Email) error { return nil }

type noopProgression struct{}

func (noopProgression) Arm(jobs []domain.ScheduledTransition) {}

func (noopProgression) Cancel(ctx context.Context, orderID string) error { return nil }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func newTestRouter(t *testing.T) (chi.Router, *application.TrackingService) {
	t.Helper()
	repo := &memRepo{created: make(map[string]*domain.OrderTracking)}
	svc := application.NewTrackingService(repo, dropNotifier{}, noopProgression{}, realClock{}, application.ScheduleDelays{
		PaymentConfirmed: time.Hour,
		Processing:       24 * time.Hour,
		Shipped:          72 * time.Hour,
		Delivered:        168 * time.Hour,
	})
	r := chi.NewRouter()
	NewTrackingHandler(svc).Register(r)
	return r, svc
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestQuoteEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/pricing/quote",
		`{"size":"500ml","quantity":75,"custom_label":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UnitPrice decimal.Decimal `json:"unit_price"`
		Subtotal  decimal.Decimal `json:"subtotal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(13)), "got %s", resp.UnitPrice)
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("975.00")), "got %s", resp.Subtotal)
}

func TestQuoteEndpoint_OutOfRange(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/pricing/quote",
		`{"size":"500ml","quantity":10001,"custom_label":false}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no price tier")
}

func TestTrackingEndpoints(t *testing.T) {
	r, svc := newTestRouter(t)
	ctx := context.Background()

	_, err := svc.CreateOrderTracking(ctx, "BLK123", "a@b.com", decimal.RequireFromString("975.00"), nil)
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodGet, "/tracking/BLK123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_created"`)

	rec = doJSON(t, r, http.MethodGet, "/tracking/UNKNOWN", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// illegal skip ahead surfaces as a conflict, not a silent append
	rec = doJSON(t, r, http.MethodPost, "/tracking/BLK123/activity", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/tracking/BLK123/activity", `{"status":"payment_confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/tracking/BLK123/cancel", `{"reason":"changed my mind"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/tracking/BLK123/activity", `{"status":"processing"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/customers/a@b.com/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BLK123")
}
