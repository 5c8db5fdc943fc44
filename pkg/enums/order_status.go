package enums

import "fmt"

// OrderStatus models the order lifecycle. Orders start pending and move
// forward only through the transitions listed in orderStatusTransitions.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusCancelled,
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCancelled},
	OrderStatusCancelled: {},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from the status.
func (s OrderStatus) IsTerminal() bool {
	return len(orderStatusTransitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
