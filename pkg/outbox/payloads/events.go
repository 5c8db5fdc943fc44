package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreated is the data section for order_created events.
type OrderCreated struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	OwnerKey    string    `json:"ownerKey"`
	Currency    string    `json:"currency"`
	TotalCents  int       `json:"totalCents"`
	LineCount   int       `json:"lineCount"`
}

// OrderStatusChanged is the data section for order_status_changed events.
type OrderStatusChanged struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	ChangedAt   time.Time `json:"changedAt"`
}

// GuestOrdersLinked is the data section for guest_orders_linked events.
type GuestOrdersLinked struct {
	UserID         uuid.UUID `json:"userId"`
	GuestSessionID string    `json:"guestSessionId"`
	OrdersLinked   int       `json:"ordersLinked"`
}

// CartExpired is the data section for cart_expired events.
type CartExpired struct {
	CartID   uuid.UUID `json:"cartId"`
	OwnerKey string    `json:"ownerKey"`
	IdleFor  string    `json:"idleFor"`
}
