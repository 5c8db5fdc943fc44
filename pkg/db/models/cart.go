package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/pkg/enums"
)

// Cart is the single active cart for an owner: either an authenticated
// user or a guest session, discriminated by OwnerKind. A partial unique
// index on (owner_kind, user_id) and (owner_kind, guest_session_id)
// guarantees at most one active cart per owner.
type Cart struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerKind      enums.OwnerKind  `gorm:"column:owner_kind;not null"`
	UserID         *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	GuestSessionID *string          `gorm:"column:guest_session_id"`
	Status         enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	Currency       enums.Currency   `gorm:"column:currency;not null;default:'INR'"`
	Items          []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
