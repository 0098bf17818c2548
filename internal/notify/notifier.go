// Package notify delivers order side effects. Callers treat every
// Notifier as fire-and-forget: a failed notification is logged by the
// caller and never fails the order operation that triggered it.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	OrderPlaced        EventType = "order.placed"
	OrderStatusChanged EventType = "order.status_changed"
	OrderCancelled     EventType = "order.cancelled"
)

type Event struct {
	Type          EventType       `json:"type"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	CustomerEmail string          `json:"customer_email"`
	SellerEmail   string          `json:"seller_email"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier and joins their failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
