package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/types"
)

// OrderView is the API shape of an order.
type OrderView struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"order_number"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	SubtotalCents  int             `json:"subtotal_cents"`
	DiscountCents  int             `json:"discount_cents"`
	ShippingCents  int             `json:"shipping_cents"`
	TotalCents     int             `json:"total_cents"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
	ShippingAddr   types.Address   `json:"shipping_address"`
	LineItems      []OrderLineView `json:"line_items"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderLineView is one immutable order line.
type OrderLineView struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

// NewOrderView maps the persistence model to the API shape.
func NewOrderView(record *models.Order) OrderView {
	view := OrderView{
		ID:             record.ID,
		OrderNumber:    record.OrderNumber,
		Status:         record.Status.String(),
		Currency:       record.Currency.String(),
		ConversionRate: record.ConversionRate,
		SubtotalCents:  record.SubtotalCents,
		DiscountCents:  record.DiscountCents,
		ShippingCents:  record.ShippingCents,
		TotalCents:     record.TotalCents,
		CouponCode:     record.CouponCode,
		ShippingAddr:   record.ShippingAddr,
		LineItems:      make([]OrderLineView, 0, len(record.LineItems)),
		CreatedAt:      record.CreatedAt,
	}
	for _, line := range record.LineItems {
		view.LineItems = append(view.LineItems, OrderLineView{
			ProductID:      line.ProductID,
			VariantKey:     line.VariantKey,
			ProductName:    line.ProductName,
			SKU:            line.SKU,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		})
	}
	return view
}

// OrderListView is a cursor-paginated page of orders.
type OrderListView struct {
	Orders     []OrderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}
