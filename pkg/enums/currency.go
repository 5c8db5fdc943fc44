package enums

import "fmt"

// Currency represents supported display denominations for carts and orders.
// INR is the base currency every price is stored in.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyAED Currency = "AED"
)

var validCurrencies = []Currency{
	CurrencyINR,
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyAED,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
