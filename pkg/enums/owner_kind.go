package enums

import "fmt"

// OwnerKind says whether a cart or order belongs to an authenticated user
// or an anonymous guest session.
type OwnerKind string

const (
	OwnerKindUser  OwnerKind = "user"
	OwnerKindGuest OwnerKind = "guest"
)

var validOwnerKinds = []OwnerKind{
	OwnerKindUser,
	OwnerKindGuest,
}

// String implements fmt.Stringer.
func (k OwnerKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known OwnerKind.
func (k OwnerKind) IsValid() bool {
	for _, candidate := range validOwnerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOwnerKind converts raw input into an OwnerKind.
func ParseOwnerKind(value string) (OwnerKind, error) {
	for _, candidate := range validOwnerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid owner kind %q", value)
}
