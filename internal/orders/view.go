package orders

import (
	"context"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"

	"gorm.io/gorm"
)

// OrderView is an order joined with display fields of its product.
type OrderView struct {
	domain.Order
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    string `json:"image"`
}

// ViewBuilder answers the order dashboards. It is an inner join: an order
// whose product has been deleted is left out of the result rather than
// reported as an error.
type ViewBuilder struct {
	db *gorm.DB
}

func NewViewBuilder(db *gorm.DB) *ViewBuilder {
	return &ViewBuilder{db: db}
}

func (v *ViewBuilder) ForCustomer(ctx context.Context, email string) ([]OrderView, error) {
	return v.list(ctx, "orders.customer_email = ?", email)
}

func (v *ViewBuilder) ForSeller(ctx context.Context, email string) ([]OrderView, error) {
	return v.list(ctx, "orders.seller = ?", email)
}

func (v *ViewBuilder) list(ctx context.Context, filter, email string) ([]OrderView, error) {
	out := []OrderView{}
	err := v.db.WithContext(ctx).
		Table("orders").
		Select("orders.*, products.name AS name, products.category AS category, products.image AS image").
		Joins("JOIN products ON products.id = orders.product_id").
		Where(filter, email).
		Order("orders.created_at, orders.id").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	return out, nil
}
