// Package catalog is the seller-facing product store.
package catalog

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"
	"marketplace/internal/inventory"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProductDetails are the fields a seller may edit. Stock is not one of
// them; it only moves through the inventory ledger.
type ProductDetails struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
}

func (d ProductDetails) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if !d.Price.IsPositive() {
		return apperr.Invalid("price must be positive")
	}
	return nil
}

// ProductInput is a new listing: its details plus the opening stock.
type ProductInput struct {
	ProductDetails
	Quantity int `json:"quantity"`
}

// Catalog stores products; opening stock is booked through the inventory ledger.
type Catalog struct {
	db    *gorm.DB
	stock *inventory.Ledger
	log   *logrus.Logger
}

// New returns a Catalog over db that books stock through stock.
func New(db *gorm.DB, stock *inventory.Ledger, log *logrus.Logger) *Catalog {
	return &Catalog{db: db, stock: stock, log: log}
}

// Create inserts the product at zero stock and books the opening quantity
// as a movement in the same transaction.
func (c *Catalog) Create(ctx context.Context, seller domain.Seller, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}
	if in.Quantity < 0 {
		return domain.Product{}, apperr.Invalid("quantity must not be negative")
	}
	p := domain.Product{
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price,
		Seller:      seller,
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return apperr.Internal("create product", err)
		}
		if in.Quantity == 0 {
			return nil
		}
		return c.stock.AdjustTx(tx, inventory.Adjustment{
			ProductID: p.ID,
			Delta:     in.Quantity,
			Reason:    domain.ReasonOpening,
			Actor:     seller.Email,
		})
	})
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.Internal("create product", err)
		}
		return domain.Product{}, err
	}
	p.Quantity = in.Quantity
	c.log.WithFields(logrus.Fields{"product_id": p.ID, "seller": seller.Email}).Info("Product created")
	return p, nil
}

func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	if err := c.db.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("list products", err)
	}
	return out, nil
}

func (c *Catalog) ListBySeller(ctx context.Context, email string) ([]domain.Product, error) {
	out := []domain.Product{}
	if err := c.db.WithContext(ctx).Where("seller_email = ?", email).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("list seller products", err)
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Product{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return domain.Product{}, apperr.Internal("load product", err)
	}
	return p, nil
}

// Update replaces the details of a product owned by actorEmail. The stock
// counter is left alone.
func (c *Catalog) Update(ctx context.Context, actorEmail, id string, in ProductDetails) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}
	p, err := c.owned(ctx, actorEmail, id)
	if err != nil {
		return domain.Product{}, err
	}
	err = c.db.WithContext(ctx).Model(&p).Select("name", "category", "description", "image", "price").
		Updates(domain.Product{
			Name:        in.Name,
			Category:    in.Category,
			Description: in.Description,
			Image:       in.Image,
			Price:       in.Price,
		}).Error
	if err != nil {
		return domain.Product{}, apperr.Internal("update product", err)
	}
	c.log.WithFields(logrus.Fields{"product_id": id, "seller": actorEmail}).Info("Product updated")
	return c.Get(ctx, id)
}

// Delete removes a product owned by actorEmail. Orders referencing it are
// kept and simply drop out of the order views.
func (c *Catalog) Delete(ctx context.Context, actorEmail, id string) error {
	if _, err := c.owned(ctx, actorEmail, id); err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id).Error; err != nil {
		return apperr.Internal("delete product", err)
	}
	c.log.WithFields(logrus.Fields{"product_id": id, "seller": actorEmail}).Info("Product deleted")
	return nil
}

func (c *Catalog) owned(ctx context.Context, actorEmail, id string) (domain.Product, error) {
	p, err := c.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Seller.Email != actorEmail {
		return domain.Product{}, apperr.Forbidden("only the product's seller may change it")
	}
	return p, nil
}
