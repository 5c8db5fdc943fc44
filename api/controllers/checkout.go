package controllers

import (
	"net/http"

	ordercontrollers "github.com/bluewud/storefront-backend/api/controllers/orders"
	"github.com/bluewud/storefront-backend/api/middleware"
	"github.com/bluewud/storefront-backend/api/responses"
	"github.com/bluewud/storefront-backend/api/validators"
	checkoutsvc "github.com/bluewud/storefront-backend/internal/checkout"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/types"
)

// CheckoutRequest converts the owner's cart into an order.
type CheckoutRequest struct {
	Currency        string        `json:"currency"`
	CouponCode      string        `json:"coupon_code"`
	ExpressShipping bool          `json:"express_shipping"`
	GuestEmail      string        `json:"guest_email" validate:"omitempty,email"`
	ShippingAddress types.Address `json:"shipping_address"`
}

func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		owner := middleware.OwnerFromContext(r.Context())

		var payload CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.Input{
			Owner:           owner,
			GuestEmail:      payload.GuestEmail,
			CouponCode:      payload.CouponCode,
			ExpressShipping: payload.ExpressShipping,
			ShippingAddress: payload.ShippingAddress,
		}
		if payload.Currency != "" {
			currency, err := enums.ParseCurrency(payload.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			input.Currency = currency
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":  ordercontrollers.NewOrderView(result.Order),
			"totals": result.Totals,
		})
	}
}
