package cart

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/api/middleware"
	"github.com/bluewud/storefront-backend/api/responses"
	"github.com/bluewud/storefront-backend/api/validators"
	cartsvc "github.com/bluewud/storefront-backend/internal/cart"
	orderssvc "github.com/bluewud/storefront-backend/internal/orders"
	"github.com/bluewud/storefront-backend/internal/pricing"
	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
)

// CartFetch returns the owner's active cart with a priced quote. The
// quote ignores coupons; those apply only at checkout.
func CartFetch(svc cartsvc.Service, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		record, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := quoteTotals(engine, record, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, totals))
	}
}

func quoteTotals(engine *pricing.Engine, record *models.Cart, r *http.Request) (*pricing.Totals, error) {
	if engine == nil || len(record.Items) == 0 {
		return nil, nil
	}

	target := record.Currency
	if raw := r.URL.Query().Get("currency"); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		target = parsed
	}
	express := false
	if raw := r.URL.Query().Get("express"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "express must be a boolean")
		}
		express = parsed
	}

	lines := make([]pricing.LineInput, 0, len(record.Items))
	for _, item := range record.Items {
		lines = append(lines, pricing.LineInput{
			Quantity:       item.Quantity,
			UnitPriceCents: item.PriceAtAddCents,
		})
	}
	return engine.ComputeTotals(lines, nil, target, express)
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		record, err := svc.AddItem(r.Context(), owner, cartsvc.AddItemInput{
			ProductID:  productID,
			VariantKey: payload.VariantKey,
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, nil))
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		record, err := svc.UpdateQuantity(r.Context(), owner, productID, payload.VariantKey, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, nil))
	}
}

// CartRemoveItem deletes one line, addressed by product and variant query
// parameters.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		productID, err := uuid.Parse(r.URL.Query().Get("product_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		variantKey := r.URL.Query().Get("variant_key")

		record, err := svc.RemoveItem(r.Context(), owner, productID, variantKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, nil))
	}
}

func CartSetCurrency(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		var payload SetCurrencyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		currency, err := enums.ParseCurrency(payload.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		record, err := svc.SetCurrency(r.Context(), owner, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, nil))
	}
}

// CartMerge runs the login reconciliation: the guest cart folds into the
// user's cart and any orders placed under the guest identity are linked.
// Requires an authenticated caller.
func CartMerge(svc cartsvc.Service, ordersService orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		if !owner.IsUser() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "merge requires an authenticated user"))
			return
		}

		var payload MergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.MergeOnLogin(r.Context(), payload.GuestSessionID, owner.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		linked := int64(0)
		if email := middleware.UserEmailFromContext(r.Context()); email != "" && ordersService != nil {
			linked, err = ordersService.LinkGuestOrders(r.Context(), email, payload.GuestSessionID, owner.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, map[string]any{
			"cart":          newCartView(record, nil),
			"orders_linked": linked,
		})
	}
}
