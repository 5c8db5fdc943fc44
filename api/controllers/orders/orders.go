package orders

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/api/middleware"
	"github.com/bluewud/storefront-backend/api/responses"
	"github.com/bluewud/storefront-backend/api/validators"
	orderssvc "github.com/bluewud/storefront-backend/internal/orders"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/pagination"
)

// OrderFetch returns one order. Ownership is enforced by the service;
// non-owners see a not-found.
func OrderFetch(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		record, err := svc.GetOrder(r.Context(), owner, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, NewOrderView(record))
	}
}

// OrdersList returns the caller's order history, newest first. Guests must
// also supply the email their orders were placed under.
func OrdersList(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list *orderssvc.OrderList
		if owner.IsUser() {
			list, err = svc.ListUserOrders(r.Context(), owner.UserID, params)
		} else {
			email := r.URL.Query().Get("email")
			list, err = svc.ListGuestOrders(r.Context(), email, owner.GuestSessionID, params)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := OrderListView{
			Orders:     make([]OrderView, 0, len(list.Orders)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Orders {
			view.Orders = append(view.Orders, NewOrderView(&list.Orders[i]))
		}
		responses.WriteSuccess(w, view)
	}
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "limit must be an integer")
		}
		params.Limit = limit
	}
	return params, nil
}

// StatusUpdateRequest moves an order along its lifecycle.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderStatusUpdate applies a status transition on the caller's own order.
// Disallowed transitions are rejected with the from/to pair in the error
// details; orders belonging to someone else read as not-found.
func OrderStatusUpdate(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload StatusUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		record, err := svc.SetStatus(r.Context(), owner, orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, NewOrderView(record))
	}
}
