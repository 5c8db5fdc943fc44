package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
)

// BaseCurrency is the denomination every price is stored and computed in.
// Conversion to a display currency is always the final step, never an input
// to pricing arithmetic.
const BaseCurrency = enums.CurrencyINR

// Converter converts base-currency amounts into display currencies using a
// fixed rate table. It carries no mutable state.
type Converter struct {
	rates map[enums.Currency]decimal.Decimal
}

// NewConverter parses the configured rate table. The base currency always
// maps to 1.
func NewConverter(cfg config.CurrencyConfig) (*Converter, error) {
	rates := map[enums.Currency]decimal.Decimal{
		BaseCurrency: decimal.NewFromInt(1),
	}

	for cur, raw := range map[enums.Currency]string{
		enums.CurrencyUSD: cfg.USDRate,
		enums.CurrencyEUR: cfg.EURRate,
		enums.CurrencyGBP: cfg.GBPRate,
		enums.CurrencyAED: cfg.AEDRate,
	} {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s rate %q: %w", cur, raw, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("%s rate must be positive, got %q", cur, raw)
		}
		rates[cur] = rate
	}

	return &Converter{rates: rates}, nil
}

// Rate returns the multiplier from base currency into target.
func (c *Converter) Rate(target enums.Currency) (decimal.Decimal, error) {
	rate, ok := c.rates[target]
	if !ok {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", target))
	}
	return rate, nil
}

// ConvertCents converts a base-currency amount in cents into target-currency
// cents, rounding half up.
func (c *Converter) ConvertCents(amountCents int, target enums.Currency) (int, error) {
	rate, err := c.Rate(target)
	if err != nil {
		return 0, err
	}
	converted := decimal.NewFromInt(int64(amountCents)).Mul(rate).Round(0)
	return int(converted.IntPart()), nil
}

// Supported lists the currencies the converter can target.
func (c *Converter) Supported() []enums.Currency {
	out := make([]enums.Currency, 0, len(c.rates))
	for cur := range c.rates {
		out = append(out, cur)
	}
	return out
}
