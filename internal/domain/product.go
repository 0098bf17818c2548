package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seller identifies the owner of a product
type Seller struct {
	Name  string `json:"name"`                        // Seller display name
	Email string `gorm:"size:191;index" json:"email"` // Seller email
}

// Product Model
type Product struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`                  // UUID primary key
	Name        string          `gorm:"not null" json:"name"`                          // Product name
	Category    string          `json:"category"`                                      // Product category
	Description string          `json:"description"`                                   // Free text description
	Image       string          `json:"image"`                                         // Hosted image URL
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`      // Unit price, positive
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`            // Available stock, only moved by the inventory ledger
	Seller      Seller          `gorm:"embedded;embeddedPrefix:seller_" json:"seller"` // Owning seller
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`               // Creation time
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`               // Last edit time
}

// BeforeCreate assigns a UUID when the caller did not
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
