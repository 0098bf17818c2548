// Package inventory owns Product.quantity. Every change is a single
// arithmetic UPDATE at the store paired with a StockMovement row; nothing
// reads the quantity into Go and writes it back.
package inventory

import (
	"context"
	"errors"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientStock = apperr.Conflict("insufficient stock")
	ErrProductNotFound   = apperr.NotFound("product not found")
)

// Direction is the wire form of a manual adjustment.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Adjustment is one signed change to a product's stock.
type Adjustment struct {
	ProductID string
	Delta     int
	OrderID   string // empty for manual and opening adjustments
	Reason    domain.MovementReason
	Actor     string
}

// Ledger applies stock adjustments and records them as movements.
type Ledger struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewLedger returns a Ledger over db.
func NewLedger(db *gorm.DB, log *logrus.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Adjust applies a in its own transaction and returns the product as it
// stands afterwards.
func (l *Ledger) Adjust(ctx context.Context, a Adjustment) (domain.Product, error) {
	var p domain.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.AdjustTx(tx, a); err != nil {
			return err
		}
		return tx.First(&p, "id = ?", a.ProductID).Error
	})
	if err != nil {
		return domain.Product{}, classify(err)
	}
	return p, nil
}

// AdjustTx applies a inside the caller's transaction.
//
// Adjustments tied to an order are idempotent per (order, reason): the
// movement row is inserted first and, if it already exists, the counter is
// left alone. Decrements only apply while quantity >= |delta|.
func (l *Ledger) AdjustTx(tx *gorm.DB, a Adjustment) error {
	if a.Delta == 0 {
		return apperr.Invalid("quantity change must not be zero")
	}

	mv := domain.StockMovement{
		ProductID: a.ProductID,
		Reason:    a.Reason,
		Delta:     a.Delta,
		Actor:     a.Actor,
	}
	if a.OrderID != "" {
		mv.OrderID = &a.OrderID
	}
	ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mv)
	if ins.Error != nil {
		return apperr.Internal("record stock movement", ins.Error)
	}
	if ins.RowsAffected == 0 {
		l.log.WithFields(logrus.Fields{
			"product_id": a.ProductID,
			"order_id":   a.OrderID,
			"reason":     a.Reason,
		}).Warn("Stock adjustment already applied, skipping")
		return nil
	}

	q := tx.Model(&domain.Product{}).Where("id = ?", a.ProductID)
	if a.Delta < 0 {
		q = q.Where("quantity >= ?", -a.Delta)
	}
	res := q.Update("quantity", gorm.Expr("quantity + ?", a.Delta))
	if res.Error != nil {
		return apperr.Internal("adjust quantity", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&domain.Product{}).Where("id = ?", a.ProductID).Count(&n).Error; err != nil {
			return apperr.Internal("check product", err)
		}
		// the movement must not outlive a change that never happened
		if err := tx.Delete(&mv).Error; err != nil {
			return apperr.Internal("discard stock movement", err)
		}
		if n == 0 {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}

	l.log.WithFields(logrus.Fields{
		"product_id": a.ProductID,
		"order_id":   a.OrderID,
		"delta":      a.Delta,
		"reason":     a.Reason,
		"actor":      a.Actor,
	}).Info("Stock adjusted")
	return nil
}

// AdjustOwned backs the manual restock endpoint: only the product's seller
// may move its stock by hand.
func (l *Ledger) AdjustOwned(ctx context.Context, actorEmail, productID string, amount int, dir Direction) (domain.Product, error) {
	if amount <= 0 {
		return domain.Product{}, apperr.Invalid("quantityToUpdate must be positive")
	}
	delta := amount
	switch dir {
	case Increase:
	case Decrease:
		delta = -amount
	default:
		return domain.Product{}, apperr.Newf(apperr.KindInvalid, "status must be %q or %q", Increase, Decrease)
	}

	var p domain.Product
	if err := l.db.WithContext(ctx).First(&p, "id = ?", productID).Error; err != nil {
		return domain.Product{}, classify(err)
	}
	if p.Seller.Email != actorEmail {
		return domain.Product{}, apperr.Forbidden("only the product's seller may adjust its stock")
	}
	return l.Adjust(ctx, Adjustment{
		ProductID: productID,
		Delta:     delta,
		Reason:    domain.ReasonManual,
		Actor:     actorEmail,
	})
}

// Movements lists the adjustments applied to a product, oldest first.
func (l *Ledger) Movements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	out := []domain.StockMovement{}
	if err := l.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, apperr.Internal("list stock movements", err)
	}
	return out, nil
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("stock adjustment", err)
}
