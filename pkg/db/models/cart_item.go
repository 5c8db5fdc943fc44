package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line in a cart, keyed by (product, variant).
// PriceAtAddCents snapshots the base-currency unit price at the moment
// the line was added; checkout refreshes it against the live catalog price.
type CartItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product_variant"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product_variant"`
	VariantKey      string    `gorm:"column:variant_key;not null;default:'';uniqueIndex:idx_cart_items_cart_product_variant"`
	Quantity        int       `gorm:"column:quantity;not null"`
	PriceAtAddCents int       `gorm:"column:price_at_add_cents;not null"`
	Product         *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
