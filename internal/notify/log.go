package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier records the customer and seller emails an event would send.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	base := n.log.WithFields(logrus.Fields{
		"event":      ev.Type,
		"order_id":   ev.OrderID,
		"product_id": ev.ProductID,
		"quantity":   ev.Quantity,
		"price":      ev.Price.String(),
		"status":     ev.Status,
	})
	switch ev.Type {
	case OrderPlaced:
		base.WithField("to", ev.CustomerEmail).Info("Email: your order was placed")
		base.WithField("to", ev.SellerEmail).Info("Email: you received a new order")
	case OrderStatusChanged:
		base.WithField("to", ev.CustomerEmail).Info("Email: your order status changed")
	case OrderCancelled:
		base.WithField("to", ev.SellerEmail).Info("Email: an order was cancelled")
	default:
		base.Debug("Unhandled notification")
	}
	return nil
}
