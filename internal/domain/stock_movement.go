package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementReason explains why a product quantity changed
type MovementReason string

const (
	ReasonOrderPlaced    MovementReason = "order_placed"    // Decrement paired with an order insert
	ReasonOrderCancelled MovementReason = "order_cancelled" // Increment paired with an order delete
	ReasonManual         MovementReason = "manual"          // Seller restock or write-off
	ReasonOpening        MovementReason = "opening_stock"   // Quantity a product was listed with
)

// StockMovement Model, one row per applied quantity adjustment
type StockMovement struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`                                         // UUID primary key
	ProductID string         `gorm:"size:36;index;not null" json:"productId"`                              // Adjusted product
	OrderID   *string        `gorm:"size:36;uniqueIndex:idx_movement_order_reason" json:"orderId"`         // Order the adjustment belongs to, nil for manual and opening stock
	Reason    MovementReason `gorm:"size:32;not null;uniqueIndex:idx_movement_order_reason" json:"reason"` // Why the quantity moved
	Delta     int            `gorm:"not null" json:"delta"`                                                // Signed change
	Actor     string         `gorm:"size:191" json:"actor"`                                                // Email of the user who caused it
	CreatedAt int64          `gorm:"autoCreateTime:milli" json:"createdAt"`                                // Timestamp of creation in milliseconds
}

// BeforeCreate assigns a UUID when the caller did not
func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
