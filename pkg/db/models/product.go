package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a storefront listing. Prices are stored in base
// currency (INR) cents.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string         `gorm:"column:sku;not null;uniqueIndex"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Category    *string        `gorm:"column:category"`
	PriceCents  int            `gorm:"column:price_cents;not null"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Inventory   *InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
