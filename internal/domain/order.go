package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is a state of the order lifecycle
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"    // Initial state
	OrderInProgress OrderStatus = "InProgress" // Accepted by the seller
	OrderDelivered  OrderStatus = "Delivered"  // Terminal
	OrderCancelled  OrderStatus = "Cancelled"  // Never stored, cancellation deletes the order
)

// Customer is the buyer snapshot stored on an order
type Customer struct {
	Name  string `json:"name"`                        // Buyer display name
	Email string `gorm:"size:191;index" json:"email"` // Buyer email
	Photo string `json:"photo"`                       // Buyer avatar URL
}

// Order Model
type Order struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`                      // UUID primary key
	ProductID string          `gorm:"size:36;index;not null" json:"productId"`           // Reference to Product, not ownership
	Customer  Customer        `gorm:"embedded;embeddedPrefix:customer_" json:"customer"` // Buyer snapshot
	Seller    string          `gorm:"size:191;index;not null" json:"seller"`             // Seller email
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`          // Total price at purchase time
	Quantity  int             `gorm:"not null" json:"quantity"`                          // Ordered units
	Address   string          `json:"address"`                                           // Shipping address
	Status    OrderStatus     `gorm:"size:16;not null;default:Pending" json:"status"`    // Lifecycle state
	CreatedAt int64           `gorm:"autoCreateTime:nano;index" json:"createdAt"`        // Insertion stamp in nanoseconds
}

// BeforeCreate assigns a UUID when the caller did not
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
