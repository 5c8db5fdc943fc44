package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bluewud/storefront-backend/pkg/enums"
	"github.com/bluewud/storefront-backend/pkg/types"
)

// Order is an immutable record of a completed checkout. Monetary totals
// are stored in base-currency cents; Currency and ConversionRate snapshot
// the display denomination the buyer checked out in so the order renders
// identically forever, regardless of later rate changes.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string            `gorm:"column:order_number;not null;uniqueIndex"`
	OwnerKind      enums.OwnerKind   `gorm:"column:owner_kind;not null"`
	UserID         *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	GuestSessionID *string           `gorm:"column:guest_session_id;index"`
	GuestEmail     *string           `gorm:"column:guest_email"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency       enums.Currency    `gorm:"column:currency;not null"`
	ConversionRate decimal.Decimal   `gorm:"column:conversion_rate;type:numeric(16,8);not null"`
	SubtotalCents  int               `gorm:"column:subtotal_cents;not null"`
	DiscountCents  int               `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents  int               `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents     int               `gorm:"column:total_cents;not null"`
	CouponCode     *string           `gorm:"column:coupon_code"`
	ShippingAddr   types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	LineItems      []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
