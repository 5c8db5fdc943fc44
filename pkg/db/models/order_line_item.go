package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots one product line at checkout time. Name and SKU
// are denormalized so the order survives catalog edits.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantKey     string    `gorm:"column:variant_key;not null;default:''"`
	ProductName    string    `gorm:"column:product_name;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
