package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/outbox"
	"github.com/bluewud/storefront-backend/pkg/outbox/payloads"
	"github.com/bluewud/storefront-backend/pkg/pagination"
	"github.com/bluewud/storefront-backend/pkg/types"

	"github.com/bluewud/storefront-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockMover releases or consumes reserved stock on status transitions.
type stockMover interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Consume(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Service exposes order reads and the status transition operation. Orders
// are append-only; everything except status is immutable once created.
type Service interface {
	GetOrder(ctx context.Context, owner types.OwnerKey, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListGuestOrders(ctx context.Context, email, sessionID string, params pagination.Params) (*OrderList, error)
	// SetStatus applies a constrained status transition on behalf of the
	// order's owner. Non-owners get a not-found, same as GetOrder.
	SetStatus(ctx context.Context, owner types.OwnerKey, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	// LinkGuestOrders attaches orders placed under the guest identity pair
	// to the newly authenticated user. Invoked from the same login event
	// that triggers the cart merge.
	LinkGuestOrders(ctx context.Context, email, sessionID string, userID uuid.UUID) (int64, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	stock  stockMover
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, stock stockMover) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock mover required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, stock: stock}, nil
}

func ownerOf(order *models.Order) types.OwnerKey {
	if order.OwnerKind == enums.OwnerKindUser && order.UserID != nil {
		return types.OwnerForUser(*order.UserID)
	}
	sessionID := ""
	if order.GuestSessionID != nil {
		sessionID = *order.GuestSessionID
	}
	return types.OwnerForGuest(sessionID)
}

func (s *service) GetOrder(ctx context.Context, owner types.OwnerKey, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if ownerOf(order) != owner {
		// hide existence from non-owners
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListUserOrders(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pageFromRows(rows, params.Limit), nil
}

func (s *service) ListGuestOrders(ctx context.Context, email, sessionID string, params pagination.Params) (*OrderList, error) {
	if email == "" || sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest email and session id required")
	}
	rows, err := s.repo.ListGuestOrders(ctx, email, sessionID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list guest orders")
	}
	return pageFromRows(rows, params.Limit), nil
}

func (s *service) SetStatus(ctx context.Context, owner types.OwnerKey, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", next))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if ownerOf(order) != owner {
			// hide existence from non-owners
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if order.Status == next {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition disallowed").
				WithDetails(map[string]any{
					"from": order.Status.String(),
					"to":   next.String(),
				})
		}

		if err := repo.UpdateStatus(ctx, order.ID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		// reserved stock is consumed on confirm, returned on cancel
		for _, line := range order.LineItems {
			switch next {
			case enums.OrderStatusConfirmed:
				err = s.stock.Consume(ctx, tx, line.ProductID, line.Quantity)
			case enums.OrderStatusCancelled:
				if order.Status == enums.OrderStatusConfirmed {
					// already consumed, nothing reserved to return
					continue
				}
				err = s.stock.Release(ctx, tx, line.ProductID, line.Quantity)
			}
			if err != nil {
				return err
			}
		}

		from := order.Status
		order.Status = next
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Owner:         &outbox.OwnerRef{OwnerKey: ownerOf(order).String()},
			Data: payloads.OrderStatusChanged{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  from.String(),
				ToStatus:    next.String(),
				ChangedAt:   time.Now(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) LinkGuestOrders(ctx context.Context, email, sessionID string, userID uuid.UUID) (int64, error) {
	if email == "" || sessionID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "guest email and session id required")
	}
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var linked int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.LinkGuestOrders(ctx, email, sessionID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link guest orders")
		}
		linked = count
		if count == 0 {
			return nil
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestOrdersLinked,
			AggregateType: enums.AggregateOrder,
			AggregateID:   userID,
			Version:       1,
			Owner:         &outbox.OwnerRef{OwnerKey: types.OwnerForUser(userID).String()},
			Data: payloads.GuestOrdersLinked{
				UserID:         userID,
				GuestSessionID: sessionID,
				OrdersLinked:   int(count),
			},
		})
	})
	if err != nil {
		return 0, err
	}
	return linked, nil
}
