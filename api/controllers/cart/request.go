package cart

// AddItemRequest adds a quantity of a product variant to the cart.
type AddItemRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	VariantKey string `json:"variant_key"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest sets a line's absolute quantity. Zero removes the line.
type UpdateItemRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	VariantKey string `json:"variant_key"`
	Quantity   int    `json:"quantity" validate:"min=0"`
}

// SetCurrencyRequest switches the cart's display currency.
type SetCurrencyRequest struct {
	Currency string `json:"currency" validate:"required"`
}

// MergeRequest folds a guest session's cart into the authenticated user's.
type MergeRequest struct {
	GuestSessionID string `json:"guest_session_id" validate:"required"`
}
