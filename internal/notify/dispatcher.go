package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/example/restaurant-orders/internal/domain/order"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
)

type job func(ctx context.Context, n Notifier)

// Dispatcher hands notifications off the request path. It implements
// Notifier by queueing; the request context is not used for delivery
// because it ends with the response. A full queue drops the notification.
type Dispatcher struct {
	target  Notifier
	queue   chan job
	workers int
	dropped atomic.Uint64
	logger  *slog.Logger
}

func NewDispatcher(target Notifier, queueSize, workers int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		target:  target,
		queue:   make(chan job, queueSize),
		workers: workers,
		logger:  logger.With("component", "NotificationDispatcher"),
	}
}

// Run delivers queued notifications until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j := <-d.queue:
					j(gctx, d.target)
				}
			}
		})
	}
	d.logger.Info("dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
	return g.Wait()
}

func (d *Dispatcher) NotifyOrderCreated(_ context.Context, summary OrderSummary) {
	d.enqueue("new_order", func(ctx context.Context, n Notifier) {
		n.NotifyOrderCreated(ctx, summary)
	})
}

func (d *Dispatcher) NotifyStatusChanged(_ context.Context, orderID string, status order.Status, customerID string) {
	d.enqueue("order_status_update", func(ctx context.Context, n Notifier) {
		n.NotifyStatusChanged(ctx, orderID, status, customerID)
	})
}

// Dropped reports how many notifications were discarded on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) enqueue(kind string, j job) {
	select {
	case d.queue <- j:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping", "kind", kind)
	}
}
