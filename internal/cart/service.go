package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// productLoader is the slice of the catalog the cart needs: current price
// and stock for clamping additions.
type productLoader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput carries an add-to-cart request.
type AddItemInput struct {
	ProductID  uuid.UUID
	VariantKey string
	Quantity   int
}

// Service owns the cart entity across guest and authenticated sessions.
type Service interface {
	GetCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error)
	AddItem(ctx context.Context, owner types.OwnerKey, input AddItemInput) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, owner types.OwnerKey, productID uuid.UUID, variantKey string, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner types.OwnerKey, productID uuid.UUID, variantKey string) (*models.Cart, error)
	SetCurrency(ctx context.Context, owner types.OwnerKey, currency enums.Currency) (*models.Cart, error)
	ClearCart(ctx context.Context, owner types.OwnerKey) error
	MergeOnLogin(ctx context.Context, guestSessionID string, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog productLoader
	logg    *logger.Logger
}

// NewService builds the cart service with the required dependencies.
func NewService(repo Repository, tx txRunner, catalog productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog, logg: logg}, nil
}

// GetCart returns the owner's active cart. Cart existence is lazy: an owner
// with no persisted cart gets an empty, unsaved cart rather than an error.
func (s *service) GetCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}

	cart, err := s.repo.FindActiveCart(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCart(owner), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func emptyCart(owner types.OwnerKey) *models.Cart {
	cart := &models.Cart{
		OwnerKind: owner.Kind,
		Status:    enums.CartStatusActive,
		Currency:  enums.CurrencyINR,
	}
	if owner.IsUser() {
		userID := owner.UserID
		cart.UserID = &userID
	} else {
		sessionID := owner.GuestSessionID
		cart.GuestSessionID = &sessionID
	}
	return cart
}

// ensureCart finds or creates the owner's active cart inside tx.
func (s *service) ensureCart(ctx context.Context, tx *gorm.DB, owner types.OwnerKey) (*models.Cart, error) {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindActiveCart(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := repo.CreateCart(ctx, emptyCart(owner))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, owner types.OwnerKey, input AddItemInput) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.catalog.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cart, err := s.ensureCart(ctx, tx, owner)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindItem(ctx, cart.ID, input.ProductID, input.VariantKey)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		quantity := input.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		// Clamp against known stock; checkout re-checks authoritatively.
		if product.Inventory != nil && quantity > product.Inventory.AvailableQty {
			quantity = product.Inventory.AvailableQty
		}
		if quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "product out of stock").
				WithDetails([]map[string]any{{
					"product_id":  input.ProductID,
					"variant_key": input.VariantKey,
					"requested":   input.Quantity,
					"available":   0,
				}})
		}

		if existing != nil {
			if err := repo.UpdateItemQuantity(ctx, existing.ID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		} else {
			item := &models.CartItem{
				CartID:          cart.ID,
				ProductID:       input.ProductID,
				VariantKey:      input.VariantKey,
				Quantity:        quantity,
				PriceAtAddCents: product.PriceCents,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
		}

		return repo.TouchCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

func (s *service) UpdateQuantity(ctx context.Context, owner types.OwnerKey, productID uuid.UUID, variantKey string, quantity int) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveCart(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		item, err := repo.FindItem(ctx, cart.ID, productID, variantKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if quantity == 0 {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
			}
		} else {
			if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		}

		return repo.TouchCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner types.OwnerKey, productID uuid.UUID, variantKey string) (*models.Cart, error) {
	return s.UpdateQuantity(ctx, owner, productID, variantKey, 0)
}

func (s *service) SetCurrency(ctx context.Context, owner types.OwnerKey, currency enums.Currency) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cart, err := s.ensureCart(ctx, tx, owner)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateCurrency(ctx, cart.ID, currency); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart currency")
		}
		return repo.TouchCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, owner)
}

// ClearCart empties the owner's cart. Invoked by checkout after the order
// is durable; clearing an absent cart is a no-op.
func (s *service) ClearCart(ctx context.Context, owner types.OwnerKey) error {
	if err := owner.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindActiveCart(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
		}
		return repo.TouchCart(ctx, cart.ID)
	})
}
