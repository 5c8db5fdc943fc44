package types

import (
	"fmt"
	"strings"
)

// Address is the shipping destination snapshot stored on orders as jsonb.
type Address struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate checks the fields an order cannot ship without.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("address: missing name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}
