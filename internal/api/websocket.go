package api

import (
	"log/slog"
	"net/http"

	"github.com/example/restaurant-orders/internal/api/middleware"
	"github.com/example/restaurant-orders/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WebSocketHandlers attach admin and customer observers to the hub
type WebSocketHandlers struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandlers accepts any origin when allowedOrigins is empty.
func NewWebSocketHandlers(hub *notify.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With("component", "WebSocket"),
	}
}

// Admin serves /ws/admin. The router only lets admins through.
func (h *WebSocketHandlers) Admin(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, notify.RoleAdmin, "", "Connected to admin notifications")
}

// Customer serves /ws/customer/{userID}. Customers may only listen to their
// own orders.
func (h *WebSocketHandlers) Customer(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if claims.UserID != userID && !claims.IsAdmin() {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	h.serve(w, r, notify.RoleCustomer, userID, "Connected to order notifications")
}

func (h *WebSocketHandlers) serve(w http.ResponseWriter, r *http.Request, role notify.Role, customerID, greeting string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", "role", role, "error", err)
		return
	}
	wc := notify.NewWSConn(conn)
	defer wc.Close()

	handle, err := h.hub.Register(wc, role, customerID)
	if err != nil {
		h.logger.Warn("websocket registration refused", "role", role, "error", err)
		return
	}
	defer h.hub.Deregister(handle)

	ctx := r.Context()
	if err := notify.Send(ctx, wc, notify.Connected{Message: greeting}); err != nil {
		h.logger.Warn("failed to greet observer", "role", role, "error", err)
		return
	}

	if err := wc.ReadLoop(ctx); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("websocket closed", "role", role, "customer_id", customerID, "error", err)
	}
}
