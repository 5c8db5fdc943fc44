package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bluewud/storefront-backend/pkg/enums"
)

// Coupon holds a discount rule. DiscountValue is a percentage for
// percentage coupons and a base-currency amount in rupees for fixed ones.
type Coupon struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string           `gorm:"column:code;not null;uniqueIndex"`
	Type               enums.CouponType `gorm:"column:type;not null"`
	DiscountValue      decimal.Decimal  `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountCents   *int             `gorm:"column:max_discount_cents"`
	MinOrderValueCents int              `gorm:"column:min_order_value_cents;not null;default:0"`
	UsageLimit         *int             `gorm:"column:usage_limit"`
	UsedCount          int              `gorm:"column:used_count;not null;default:0"`
	ValidFrom          time.Time        `gorm:"column:valid_from;not null"`
	ValidUntil         time.Time        `gorm:"column:valid_until;not null"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
