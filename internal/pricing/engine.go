package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bluewud/storefront-backend/internal/coupons"
	"github.com/bluewud/storefront-backend/internal/currency"
	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
)

// LineInput is one priced cart line in base-currency cents.
type LineInput struct {
	Quantity       int
	UnitPriceCents int
}

// Totals is the pricing result. All arithmetic happens in base currency;
// Display carries the same figures converted into the requested currency
// as the final step.
type Totals struct {
	Currency        enums.Currency  `json:"currency"`
	ConversionRate  decimal.Decimal `json:"conversion_rate"`
	SubtotalCents   int             `json:"subtotal_cents"`
	DiscountCents   int             `json:"discount_cents"`
	ShippingCents   int             `json:"shipping_cents"`
	GrandTotalCents int             `json:"grand_total_cents"`
	Display         DisplayTotals   `json:"display"`
}

// DisplayTotals mirrors Totals in the display currency.
type DisplayTotals struct {
	SubtotalCents   int `json:"subtotal_cents"`
	DiscountCents   int `json:"discount_cents"`
	ShippingCents   int `json:"shipping_cents"`
	GrandTotalCents int `json:"grand_total_cents"`
}

// Engine computes cart totals. It is a pure function over its inputs; the
// only external state is the coupon rule, which callers resolve beforehand.
type Engine struct {
	cfg       config.PricingConfig
	converter *currency.Converter
}

// NewEngine builds the pricing engine.
func NewEngine(cfg config.PricingConfig, converter *currency.Converter) (*Engine, error) {
	if converter == nil {
		return nil, fmt.Errorf("currency converter required")
	}
	return &Engine{cfg: cfg, converter: converter}, nil
}

// ComputeTotals prices the lines, applies the already-resolved discount
// rule (nil means no coupon), picks the shipping tier from the discounted
// subtotal, and converts the result into target as the last step.
//
// Shipping tiers are defined in base-currency terms, so conversion before
// the threshold comparison would change which tier applies.
func (e *Engine) ComputeTotals(lines []LineInput, rule *coupons.DiscountRule, target enums.Currency, express bool) (*Totals, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", target))
	}

	subtotal := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line price cannot be negative")
		}
		subtotal += line.Quantity * line.UnitPriceCents
	}

	discount := 0
	if rule != nil {
		discount = rule.DiscountCents(subtotal)
	}

	shipping := e.shippingCents(subtotal-discount, express)
	grand := subtotal - discount + shipping

	rate, err := e.converter.Rate(target)
	if err != nil {
		return nil, err
	}

	display, err := e.displayTotals(subtotal, discount, shipping, grand, target)
	if err != nil {
		return nil, err
	}

	return &Totals{
		Currency:        target,
		ConversionRate:  rate,
		SubtotalCents:   subtotal,
		DiscountCents:   discount,
		ShippingCents:   shipping,
		GrandTotalCents: grand,
		Display:         *display,
	}, nil
}

// shippingCents picks the tier from the discounted subtotal. The express
// upgrade is additive and selectable even when the flat tier is waived.
func (e *Engine) shippingCents(discountedSubtotal int, express bool) int {
	shipping := 0
	if int64(discountedSubtotal) < e.cfg.FreeShippingThresholdCents {
		shipping = int(e.cfg.FlatShippingCents)
	}
	if express {
		shipping += int(e.cfg.ExpressUpgradeCents)
	}
	return shipping
}

func (e *Engine) displayTotals(subtotal, discount, shipping, grand int, target enums.Currency) (*DisplayTotals, error) {
	out := DisplayTotals{}
	for _, conv := range []struct {
		base int
		dst  *int
	}{
		{subtotal, &out.SubtotalCents},
		{discount, &out.DiscountCents},
		{shipping, &out.ShippingCents},
		{grand, &out.GrandTotalCents},
	} {
		converted, err := e.converter.ConvertCents(conv.base, target)
		if err != nil {
			return nil, err
		}
		*conv.dst = converted
	}
	return &out, nil
}
