package presentation

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bluespring/aqua-orders/internal/application"
	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/logger"
	"github.com/bluespring/aqua-orders/internal/presentation/helpers"
	"github.com/bluespring/aqua-orders/internal/pricing"
)

type TrackingHandler struct {
	svc *application.TrackingService
}

func NewTrackingHandler(svc *application.TrackingService) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

func (h *TrackingHandler) Register(r chi.Router) {
	r.Post("/pricing/quote", h.Quote)
	r.Get("/tracking/{orderID}", h.GetTracking)
	r.Get("/customers/{email}/orders", h.GetCustomerOrders)
	r.Post("/tracking/{orderID}/activity", h.AddActivity)
	r.Post("/tracking/{orderID}/cancel", h.Cancel)
	r.Post("/demo/orders", h.GenerateDemoOrders)
}

type quoteRequest struct {
	Size        string `json:"size"`
	Quantity    int    `json:"quantity"`
	CustomLabel bool   `json:"custom_label"`
}

type quoteResponse struct {
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Quote prices one line. Called on every quantity/size/label edit in the
// storefront, so it stays a pure lookup with no state.
func (h *TrackingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	size := pricing.ProductSize(req.Size)
	unit, err := pricing.ResolveUnitPrice(size, req.Quantity, req.CustomLabel)
	if err != nil {
		if errors.Is(err, pricing.ErrTierNotFound) {
			helpers.HttpError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		helpers.HttpError(w, http.StatusInternalServerError, "failed to resolve price")
		return
	}
	subtotal, err := pricing.ResolveLineSubtotal(size, req.Quantity, req.CustomLabel)
	if err != nil {
		helpers.HttpError(w, http.StatusInternalServerError, "failed to resolve subtotal")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, quoteResponse{
		Size:      req.Size,
		Quantity:  req.Quantity,
		UnitPrice: unit,
		Subtotal:  subtotal,
	})
}

func (h *TrackingHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if strings.TrimSpace(orderID) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "orderID is empty")
		return
	}

	t, err := h.svc.GetOrderTracking(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			helpers.HttpError(w, http.StatusNotFound, "order not found")
			return
		}
		helpers.HttpError(w, http.StatusInternalServerError, "failed to get tracking")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, t)
}

func (h *TrackingHandler) GetCustomerOrders(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if strings.TrimSpace(email) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "email is empty")
		return
	}

	list, err := h.svc.GetCustomerOrders(r.Context(), email)
	if err != nil {
		helpers.HttpError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if list == nil {
		list = []*domain.OrderTracking{}
	}
	helpers.WriteJSON(w, http.StatusOK, list)
}

type activityRequest struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// AddActivity is the admin's manual transition: advance an order one step
// along the fulfillment path. The state machine decides whether it's legal.
func (h *TrackingHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req activityRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	err := h.svc.AddOrderActivity(r.Context(), orderID, domain.OrderStatus(req.Status), req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			helpers.HttpError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		default:
			helpers.HttpError(w, http.StatusInternalServerError, "failed to add activity")
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"order_id": orderID,
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *TrackingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req cancelRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	err := h.svc.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			helpers.HttpError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		default:
			helpers.HttpError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "cancelled",
		"order_id": orderID,
	})
}

// GenerateDemoOrders seeds demo tracked orders, priced through the real
// engine. Duplicates are skipped so the endpoint stays idempotent-ish.
func (h *TrackingHandler) GenerateDemoOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("count")
	n := 1
	if q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 100 {
			n = v
		}
	}

	var created []string
	for i := 0; i < n; i++ {
		orderID, email, total, items, err := genDemoOrder()
		if err != nil {
			logger.Warn("demo: pricing failed", "err", err)
			continue
		}
		if _, err := h.svc.CreateOrderTracking(r.Context(), orderID, email, total, items); err != nil {
			if !errors.Is(err, domain.ErrDuplicateOrder) {
				logger.Warn("demo: create failed", "err", err)
			}
			continue
		}
		created = append(created, orderID)
	}

	helpers.WriteJSON(w, http.StatusCreated, map[string]any{
		"status":      "ok",
		"created_ids": created,
	})
}

func genDemoOrder() (string, string, decimal.Decimal, []domain.OrderItem, error) {
	now := time.Now().UTC()
	orderID := "BLK-DEMO-" + strconv.FormatInt(now.UnixNano(), 10)

	size := pricing.Size500ml
	qty := 75
	unit, err := pricing.ResolveUnitPrice(size, qty, true)
	if err != nil {
		return "", "", decimal.Zero, nil, err
	}
	subtotal, err := pricing.ResolveLineSubtotal(size, qty, true)
	if err != nil {
		return "", "", decimal.Zero, nil, err
	}

	items := []domain.OrderItem{
		{Name: "Still water, custom label", Size: string(size), Quantity: qty, UnitPrice: unit},
	}
	return orderID, "demo@bluespring.example", subtotal, items, nil
}
