package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/internal/pricing"
	"github.com/bluewud/storefront-backend/pkg/db/models"
)

// CartView is the API shape of a cart.
type CartView struct {
	ID        uuid.UUID      `json:"id"`
	Status    string         `json:"status"`
	Currency  string         `json:"currency"`
	Items     []CartLineView `json:"items"`
	Totals    *pricing.Totals `json:"totals,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CartLineView is one line of the cart.
type CartLineView struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	ProductName    string    `json:"product_name,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

func newCartView(record *models.Cart, totals *pricing.Totals) CartView {
	view := CartView{
		ID:        record.ID,
		Status:    record.Status.String(),
		Currency:  record.Currency.String(),
		Items:     make([]CartLineView, 0, len(record.Items)),
		Totals:    totals,
		UpdatedAt: record.UpdatedAt,
	}
	for _, item := range record.Items {
		line := CartLineView{
			ProductID:      item.ProductID,
			VariantKey:     item.VariantKey,
			Quantity:       item.Quantity,
			UnitPriceCents: item.PriceAtAddCents,
			LineTotalCents: item.Quantity * item.PriceAtAddCents,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.SKU = item.Product.SKU
		}
		view.Items = append(view.Items, line)
	}
	return view
}
