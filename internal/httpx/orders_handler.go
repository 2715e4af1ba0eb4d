package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrderAPI interface {
	Create(ctx context.Context, userID string, in checkout.CreateOrderInput) (checkout.OrderView, error)
	GetByID(ctx context.Context, userID, orderID string) (checkout.OrderView, error)
	GetMyOrders(ctx context.Context, userID string) ([]checkout.OrderSummary, error)
	GetAllOrders(ctx context.Context, callerID string) ([]checkout.OrderSummary, error)
	GetOrderPayments(ctx context.Context, userID, orderID string) ([]checkout.PaymentView, error)
	RetryPayment(ctx context.Context, userID, orderID, method string) (checkout.OrderView, error)
	UpdatePaymentStatus(ctx context.Context, paymentID, newStatus string) (checkout.PaymentTransition, error)
	UpdateDeliveryStatus(ctx context.Context, orderID, newStatus string) error
}

type OrdersHandler struct {
	Svc      OrderAPI
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

type retryPaymentReq struct {
	PaymentMethod string `json:"payment_method"`
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.myOrders)
	r.Get("/orders/{id}", h.getByID)
	r.Get("/orders/{id}/payments", h.payments)
	r.Post("/orders/{id}/payments/retry", h.retryPayment)
	r.Put("/payments/{id}/status", h.updatePaymentStatus)
	r.Get("/admin/orders", h.allOrders)
	r.Put("/admin/orders/{id}/delivery-status", h.updateDeliveryStatus)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var in checkout.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.AddressID == "" || in.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Svc.Create(ctx, user, in)
	if err != nil {
		writeErr(w, err)
		return
	}

	// cache status biar GET cepat; DB tetap jadi kebenaran
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, view.ID)
		_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, view.Status), redisx.TTLStatusCache).Err()
	}

	if h.Producer != nil {
		ev := checkout.Envelope{
			EventID:       uuid.NewString(),
			EventType:     checkout.EventOrderPlaced,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: view.ID,
			Payload: kafkax.MustMarshal(checkout.OrderPlacedPayload{
				OrderID:    view.ID,
				UserID:     user,
				Items:      view.Items,
				TotalCents: view.TotalCents,
			}),
		}
		h.Producer.Publish(checkout.PartitionKey(view.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventOrderPlaced)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *OrdersHandler) getByID(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Svc.GetByID(ctx, user, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Svc.GetMyOrders(ctx, user)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) allOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Svc.GetAllOrders(ctx, user)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) payments(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Svc.GetOrderPayments(ctx, user, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) retryPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req retryPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing payment_method"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Svc.RetryPayment(ctx, user, chi.URLParam(r, "id"), req.PaymentMethod)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// updatePaymentStatus: entry point notifier pembayaran via HTTP
// (selain konsumer kafka di cmd/payments).
func (h *OrdersHandler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.UpdatePaymentStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
		_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, res.OrderStatus), redisx.TTLStatusCache).Err()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) updateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.UpdateDeliveryStatus(ctx, chi.URLParam(r, "id"), req.Status); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
