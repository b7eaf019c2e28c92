package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/restaurant-orders/internal/api/middleware"
	"github.com/example/restaurant-orders/internal/command"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/query"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *slog.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.With("component", "API"),
	}
}

// Order Handlers

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	o, err := h.cmdHandler.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pagination(w, r)
	if !ok {
		return
	}

	orders, err := h.queryHandler.MyOrders(r.Context(), viewer(r), skip, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), viewer(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	status := order.Status(r.URL.Query().Get("status"))

	orders, err := h.queryHandler.ListOrders(r.Context(), status, skip, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrderStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queryHandler.DashboardStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps domain errors onto HTTP statuses. Server-side failures are
// logged and hidden from the client.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, status, http.StatusText(status))
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrNoValidItems),
		errors.Is(err, order.ErrInvalidOrderType),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidPaymentStatus),
		errors.Is(err, order.ErrEmptyUpdate),
		errors.Is(err, query.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrOrderNumberConflict),
		errors.Is(err, order.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, order.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func viewer(r *http.Request) query.Viewer {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return query.Viewer{}
	}
	return query.Viewer{UserID: claims.UserID, IsAdmin: claims.IsAdmin()}
}

func pagination(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	q := r.URL.Query()
	var err error
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "skip must be an integer")
			return 0, 0, false
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return 0, 0, false
		}
	}
	return skip, limit, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
