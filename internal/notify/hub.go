package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
)

const DefaultSendTimeout = 2 * time.Second

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

var (
	ErrCustomerIDRequired = errors.New("customer id is required")
	ErrInvalidRole        = errors.New("invalid observer role")
	ErrHubClosed          = errors.New("notification hub is closed")
)

// Conn is one live observer transport. Send must respect ctx cancellation;
// the hub also stops waiting once ctx expires.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Handle identifies one registration. The zero Handle is never issued.
type Handle struct {
	id         uint64
	role       Role
	customerID string
}

func (h Handle) Role() Role         { return h.role }
func (h Handle) CustomerID() string { return h.customerID }

// Notifier is what the order write path depends on.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, summary OrderSummary)
	NotifyStatusChanged(ctx context.Context, orderID string, status order.Status, customerID string)
}

type customerConn struct {
	id   uint64
	conn Conn
}

// Hub keeps the live observer connections and delivers events to them.
// Admin and customer registries are locked independently.
type Hub struct {
	adminsMu sync.RWMutex
	admins   map[uint64]Conn

	customersMu sync.RWMutex
	customers   map[string]customerConn

	nextID      atomic.Uint64
	closed      atomic.Bool
	sendTimeout time.Duration
	logger      *slog.Logger
}

type HubOption func(*Hub)

func WithSendTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		admins:      make(map[uint64]Conn),
		customers:   make(map[string]customerConn),
		sendTimeout: DefaultSendTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "NotificationHub")
	return h
}

// Register adds conn to the registry. A customer registration replaces any
// earlier one for the same id and closes the earlier connection.
func (h *Hub) Register(conn Conn, role Role, customerID string) (Handle, error) {
	if h.closed.Load() {
		return Handle{}, ErrHubClosed
	}

	handle := Handle{id: h.nextID.Add(1), role: role}

	switch role {
	case RoleAdmin:
		h.adminsMu.Lock()
		// Close swaps the maps under this lock, so a registration racing it
		// either lands before the swap or sees closed here.
		if h.closed.Load() {
			h.adminsMu.Unlock()
			return Handle{}, ErrHubClosed
		}
		h.admins[handle.id] = conn
		n := len(h.admins)
		h.adminsMu.Unlock()
		h.logger.Info("admin connected", "admins", n)

	case RoleCustomer:
		if customerID == "" {
			return Handle{}, ErrCustomerIDRequired
		}
		handle.customerID = customerID
		h.customersMu.Lock()
		if h.closed.Load() {
			h.customersMu.Unlock()
			return Handle{}, ErrHubClosed
		}
		previous, replaced := h.customers[customerID]
		h.customers[customerID] = customerConn{id: handle.id, conn: conn}
		h.customersMu.Unlock()
		if replaced {
			previous.conn.Close()
		}
		h.logger.Info("customer connected", "customer_id", customerID, "replaced", replaced)

	default:
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return handle, nil
}

// Deregister removes the registration behind handle. Unknown or superseded
// handles are ignored.
func (h *Hub) Deregister(handle Handle) {
	switch handle.role {
	case RoleAdmin:
		h.adminsMu.Lock()
		delete(h.admins, handle.id)
		h.adminsMu.Unlock()
	case RoleCustomer:
		h.removeCustomer(handle.customerID, handle.id)
	}
}

func (h *Hub) removeCustomer(customerID string, id uint64) bool {
	h.customersMu.Lock()
	defer h.customersMu.Unlock()
	if cur, ok := h.customers[customerID]; ok && cur.id == id {
		delete(h.customers, customerID)
		return true
	}
	return false
}

// BroadcastToAdmins delivers ev to every admin concurrently. Recipients that
// fail or time out are evicted and closed.
func (h *Hub) BroadcastToAdmins(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type(), "error", err)
		return
	}

	h.adminsMu.RLock()
	targets := make(map[uint64]Conn, len(h.admins))
	for id, c := range h.admins {
		targets[id] = c
	}
	h.adminsMu.RUnlock()

	var wg sync.WaitGroup
	for id, c := range targets {
		wg.Add(1)
		go func(id uint64, c Conn) {
			defer wg.Done()
			if err := h.deliver(ctx, c, payload); err != nil {
				h.evictAdmin(id, c, err)
			}
		}(id, c)
	}
	wg.Wait()
}

// SendToCustomer delivers ev to the customer's current connection, if any.
func (h *Hub) SendToCustomer(ctx context.Context, customerID string, ev Event) {
	h.customersMu.RLock()
	target, ok := h.customers[customerID]
	h.customersMu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type(), "error", err)
		return
	}

	if err := h.deliver(ctx, target.conn, payload); err != nil {
		if h.removeCustomer(customerID, target.id) {
			h.logger.Warn("customer evicted", "customer_id", customerID, "error", err)
		}
		target.conn.Close()
	}
}

func (h *Hub) NotifyOrderCreated(ctx context.Context, summary OrderSummary) {
	h.BroadcastToAdmins(ctx, OrderCreated{Order: summary})
}

// NotifyStatusChanged sends the update to the owning customer and to admins.
func (h *Hub) NotifyStatusChanged(ctx context.Context, orderID string, status order.Status, customerID string) {
	ev := StatusChanged{OrderID: orderID, Status: status}

	var wg sync.WaitGroup
	if customerID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.SendToCustomer(ctx, customerID, ev)
		}()
	}
	h.BroadcastToAdmins(ctx, ev)
	wg.Wait()
}

func (h *Hub) AdminCount() int {
	h.adminsMu.RLock()
	defer h.adminsMu.RUnlock()
	return len(h.admins)
}

func (h *Hub) HasCustomer(customerID string) bool {
	h.customersMu.RLock()
	defer h.customersMu.RUnlock()
	_, ok := h.customers[customerID]
	return ok
}

// Close drops and closes every registered connection. Later registrations
// fail with ErrHubClosed.
func (h *Hub) Close() {
	h.closed.Store(true)

	h.adminsMu.Lock()
	admins := h.admins
	h.admins = make(map[uint64]Conn)
	h.adminsMu.Unlock()

	h.customersMu.Lock()
	customers := h.customers
	h.customers = make(map[string]customerConn)
	h.customersMu.Unlock()

	for _, c := range admins {
		c.Close()
	}
	for _, cc := range customers {
		cc.conn.Close()
	}
	h.logger.Info("hub closed", "admins", len(admins), "customers", len(customers))
}

// deliver bounds a single send by the hub's send timeout, even if the
// connection ignores ctx.
func (h *Hub) deliver(ctx context.Context, c Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Send(ctx, payload) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) evictAdmin(id uint64, c Conn, cause error) {
	h.adminsMu.Lock()
	_, present := h.admins[id]
	delete(h.admins, id)
	h.adminsMu.Unlock()

	if present {
		h.logger.Warn("admin evicted", "error", cause)
	}
	c.Close()
}

// Send encodes ev and writes it straight to c, bypassing the registry.
func Send(ctx context.Context, c Conn, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.Send(ctx, payload)
}
