package api

import (
	"log/slog"
	"net/http"

	"github.com/example/restaurant-orders/internal/api/middleware"
	"github.com/example/restaurant-orders/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handlers *Handlers, ws *WebSocketHandlers, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handlers.Healthz)

	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(validator))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handlers.CreateOrder)
			r.Get("/my-orders", handlers.MyOrders)
			r.With(requireAdmin).Get("/", handlers.ListOrders)
			r.With(requireAdmin).Get("/stats/dashboard", handlers.DashboardStats)
			r.Get("/{id}", handlers.GetOrder)
			r.With(requireAdmin).Put("/{id}", handlers.UpdateOrder)
		})

		r.Route("/ws", func(r chi.Router) {
			r.With(requireAdmin).Get("/admin", ws.Admin)
			r.Get("/customer/{userID}", ws.Customer)
		})
	})

	return r
}
