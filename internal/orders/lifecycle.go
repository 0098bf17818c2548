// Package orders owns the order state machine and its coupling to the
// inventory ledger. Placing and cancelling are each one database
// transaction: the order write and the paired stock adjustment commit
// together or not at all.
package orders

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"
	"marketplace/internal/inventory"
	"marketplace/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// PlaceRequest is a customer's purchase of Quantity units of ProductID.
type PlaceRequest struct {
	ProductID string
	Quantity  int
	Address   string
	Customer  domain.Customer
}

// CancelResult carries a warning when the order was removed but its stock
// could not be restored because the product no longer exists.
type CancelResult struct {
	Order   domain.Order `json:"order"`
	Warning string       `json:"warning,omitempty"`
}

// Lifecycle moves orders through their states and keeps stock in step.
type Lifecycle struct {
	db       *gorm.DB
	stock    *inventory.Ledger
	notifier notify.Notifier
	log      *logrus.Logger

	placed    metric.Int64Counter
	cancelled metric.Int64Counter
	advanced  metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewLifecycle wires a Lifecycle; a nil notifier is replaced by notify.Nop.
func NewLifecycle(db *gorm.DB, stock *inventory.Ledger, notifier notify.Notifier, log *logrus.Logger) *Lifecycle {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	meter := otel.Meter("marketplace/orders")
	l := &Lifecycle{db: db, stock: stock, notifier: notifier, log: log}
	// instrument creation only fails on invalid names
	l.placed, _ = meter.Int64Counter("orders_placed_total", metric.WithDescription("Orders placed"))
	l.cancelled, _ = meter.Int64Counter("orders_cancelled_total", metric.WithDescription("Orders cancelled"))
	l.advanced, _ = meter.Int64Counter("orders_status_changes_total", metric.WithDescription("Order status transitions"))
	l.rejected, _ = meter.Int64Counter("orders_rejected_total", metric.WithDescription("Order operations refused, by kind"))
	return l
}

// Place inserts a Pending order and decrements the product's stock by the
// ordered quantity. Price and seller are taken from the product, not the
// client.
func (l *Lifecycle) Place(ctx context.Context, req PlaceRequest) (domain.Order, error) {
	if req.Quantity <= 0 {
		return domain.Order{}, apperr.Invalid("quantity must be at least 1")
	}
	if req.Customer.Email == "" {
		return domain.Order{}, apperr.Invalid("customer email is required")
	}

	var order domain.Order
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.First(&p, "id = ?", req.ProductID).Error; err != nil {
			return err
		}
		order = domain.Order{
			ProductID: p.ID,
			Customer:  req.Customer,
			Seller:    p.Seller.Email,
			Price:     p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
			Quantity:  req.Quantity,
			Address:   req.Address,
			Status:    domain.OrderPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return apperr.Internal("insert order", err)
		}
		return l.stock.AdjustTx(tx, inventory.Adjustment{
			ProductID: p.ID,
			Delta:     -req.Quantity,
			OrderID:   order.ID,
			Reason:    domain.ReasonOrderPlaced,
			Actor:     req.Customer.Email,
		})
	})
	if err != nil {
		err = classify(err, "product not found")
		l.reject(ctx, "place", err)
		return domain.Order{}, err
	}

	l.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"customer":   order.Customer.Email,
		"quantity":   order.Quantity,
		"price":      order.Price.String(),
	}).Info("Order placed")
	l.placed.Add(ctx, 1)
	l.notify(ctx, notify.OrderPlaced, order)
	return order, nil
}

// Advance moves an order to next on behalf of its seller. Asking for the
// current status succeeds without a write and reports changed=false.
func (l *Lifecycle) Advance(ctx context.Context, actorEmail, orderID string, next domain.OrderStatus) (domain.Order, bool, error) {
	if next == domain.OrderCancelled {
		return domain.Order{}, false, apperr.Invalid("cancel an order by deleting it")
	}
	if !Writable(next) {
		return domain.Order{}, false, apperr.Newf(apperr.KindInvalid, "unknown order status %q", next)
	}

	var order domain.Order
	changed := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Seller != actorEmail {
			return apperr.Forbidden("only the order's seller may change its status")
		}
		if order.Status == next {
			return nil
		}
		if !CanTransition(order.Status, next) {
			return apperr.Newf(apperr.KindConflict, "cannot move order from %s to %s", order.Status, next)
		}
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", next)
		if res.Error != nil {
			return apperr.Internal("update order status", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order was changed concurrently, reload and retry")
		}
		order.Status = next
		changed = true
		return nil
	})
	if err != nil {
		err = classify(err, "order not found")
		l.reject(ctx, "advance", err)
		return domain.Order{}, false, err
	}
	if !changed {
		return order, false, nil
	}

	l.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"seller":   actorEmail,
		"status":   next,
	}).Info("Order status changed")
	l.advanced.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(next))))
	l.notify(ctx, notify.OrderStatusChanged, order)
	return order, true, nil
}

// Cancel deletes an order that has not been delivered and restocks its
// product. Delivered orders are refused before the caller is even checked.
func (l *Lifecycle) Cancel(ctx context.Context, actorEmail, orderID string) (CancelResult, error) {
	var result CancelResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if !Cancellable(order.Status) {
			return apperr.Conflict("cannot cancel a delivered order")
		}
		if actorEmail != order.Customer.Email && actorEmail != order.Seller {
			return apperr.Forbidden("only the order's customer or seller may cancel it")
		}
		del := tx.Where("id = ? AND status <> ?", order.ID, domain.OrderDelivered).Delete(&domain.Order{})
		if del.Error != nil {
			return apperr.Internal("delete order", del.Error)
		}
		if del.RowsAffected == 0 {
			return apperr.Conflict("order was changed concurrently, reload and retry")
		}
		result.Order = order

		err := l.stock.AdjustTx(tx, inventory.Adjustment{
			ProductID: order.ProductID,
			Delta:     order.Quantity,
			OrderID:   order.ID,
			Reason:    domain.ReasonOrderCancelled,
			Actor:     actorEmail,
		})
		if errors.Is(err, inventory.ErrProductNotFound) {
			result.Warning = "order cancelled, but its product no longer exists so no stock was restored"
			return nil
		}
		return err
	})
	if err != nil {
		err = classify(err, "order not found")
		l.reject(ctx, "cancel", err)
		return CancelResult{}, err
	}

	entry := l.log.WithFields(logrus.Fields{
		"order_id":   result.Order.ID,
		"product_id": result.Order.ProductID,
		"actor":      actorEmail,
		"quantity":   result.Order.Quantity,
	})
	if result.Warning != "" {
		entry.Warn("Order cancelled without restock")
	} else {
		entry.Info("Order cancelled")
	}
	l.cancelled.Add(ctx, 1)
	result.Order.Status = domain.OrderCancelled
	l.notify(ctx, notify.OrderCancelled, result.Order)
	return result, nil
}

func (l *Lifecycle) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	if err := l.db.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
		return domain.Order{}, classify(err, "order not found")
	}
	return o, nil
}

// notify hands the event to the notifier; failures stop here.
func (l *Lifecycle) notify(ctx context.Context, typ notify.EventType, o domain.Order) {
	ev := notify.Event{
		Type:          typ,
		OrderID:       o.ID,
		ProductID:     o.ProductID,
		CustomerEmail: o.Customer.Email,
		SellerEmail:   o.Seller,
		Quantity:      o.Quantity,
		Price:         o.Price,
		Status:        string(o.Status),
		OccurredAt:    time.Now(),
	}
	if err := l.notifier.Notify(ctx, ev); err != nil {
		l.log.WithFields(logrus.Fields{
			"event":    typ,
			"order_id": o.ID,
			"error":    err.Error(),
		}).Warn("Order notification failed")
	}
}

func (l *Lifecycle) reject(ctx context.Context, op string, err error) {
	kind := apperr.KindOf(err)
	l.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("kind", string(kind)),
	))
	if kind == apperr.KindInternal {
		l.log.WithFields(logrus.Fields{"operation": op, "error": err.Error()}).Error("Order operation failed")
	}
}

func classify(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("order store", err)
}
