package order

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Update is a partial write to an existing order. Nil fields are left as is.
type Update struct {
	Status                *Status
	PaymentStatus         *PaymentStatus
	EstimatedDeliveryTime *time.Time
}

func (u Update) IsEmpty() bool {
	return u.Status == nil && u.PaymentStatus == nil && u.EstimatedDeliveryTime == nil
}

// Apply writes u onto o. Any status may be written over any other; only the
// transition timestamps are guarded so they are set exactly once.
// Validation happens before o is touched.
func (o *Order) Apply(u Update, now time.Time) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, *u.PaymentStatus)
	}

	now = now.UTC()

	if u.Status != nil {
		o.Status = *u.Status
		switch o.Status {
		case StatusConfirmed:
			if o.ConfirmedAt == nil {
				o.ConfirmedAt = timePtr(now)
			}
		case StatusDelivered:
			if o.CompletedAt == nil {
				o.CompletedAt = timePtr(now)
			}
			if o.ActualDeliveryTime == nil {
				o.ActualDeliveryTime = timePtr(now)
			}
		}
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.EstimatedDeliveryTime != nil {
		o.EstimatedDeliveryTime = timePtr(u.EstimatedDeliveryTime.UTC())
	}

	o.UpdatedAt = now
	return nil
}

// MaxTransitionAttempts bounds how often Transition re-reads an order that
// another writer updated in between.
const MaxTransitionAttempts = 5

// Transition loads the order, applies u and persists the result. A
// concurrent write makes it start over from the fresh copy, so write-once
// timestamps and fields u does not carry are never clobbered.
func (s *Service) Transition(ctx context.Context, orderID string, u Update) (*Order, error) {
	var err error
	for attempt := 1; attempt <= MaxTransitionAttempts; attempt++ {
		var o *Order
		o, err = s.transitionOnce(ctx, orderID, u)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		s.logger.Debug("order changed underneath update, retrying", "order_id", orderID, "attempt", attempt)
	}
	return nil, err
}

func (s *Service) transitionOnce(ctx context.Context, orderID string, u Update) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	previous := o.Status
	if err := o.Apply(u, s.now()); err != nil {
		return nil, err
	}
	if u.Status != nil && previous.IsTerminal() && o.Status != previous {
		s.logger.Warn("status written over terminal order",
			"order_id", o.ID,
			"from", previous,
			"to", o.Status,
		)
	}

	if err := o.VerifyTotals(); err != nil {
		return nil, err
	}
	o.Version++
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}

	s.logger.Info("order updated", "order_id", o.ID, "status", o.Status, "payment_status", o.PaymentStatus)
	return o, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
