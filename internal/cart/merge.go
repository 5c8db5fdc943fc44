package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/types"
)

// MergeOnLogin folds the guest cart into the user's cart when a session
// authenticates. Quantities for matching (product, variant) pairs are
// summed rather than replaced, so a cart built while browsing as a guest
// is never silently discarded. The guest cart is deleted afterwards.
//
// The operation is idempotent: once the guest cart is gone, re-invoking it
// (login flows can fire duplicate events) returns the user's cart unchanged.
func (s *service) MergeOnLogin(ctx context.Context, guestSessionID string, userID uuid.UUID) (*models.Cart, error) {
	guestOwner := types.OwnerForGuest(guestSessionID)
	userOwner := types.OwnerForUser(userID)
	if err := guestOwner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid guest owner")
	}
	if err := userOwner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user owner")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestCart, err := repo.FindActiveCart(ctx, guestOwner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// already merged
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}

		userCart, err := s.ensureCart(ctx, tx, userOwner)
		if err != nil {
			return err
		}

		for _, guestItem := range guestCart.Items {
			existing, err := repo.FindItem(ctx, userCart.ID, guestItem.ProductID, guestItem.VariantKey)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart item")
			}

			if existing != nil {
				if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+guestItem.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
				}
				continue
			}

			moved := guestItem
			moved.ID = uuid.Nil
			moved.CartID = userCart.ID
			if err := repo.CreateItem(ctx, &moved); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item")
			}
		}

		if err := repo.DeleteItems(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop guest cart items")
		}
		if err := repo.DeleteCart(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop guest cart")
		}

		return repo.TouchCart(ctx, userCart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userOwner)
}
