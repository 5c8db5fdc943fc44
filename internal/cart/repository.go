package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	"github.com/bluewud/storefront-backend/pkg/types"
)

// Repository defines persistence operations for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID, variantKey string) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	UpdateItemPrice(ctx context.Context, itemID uuid.UUID, priceCents int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	TouchCart(ctx context.Context, cartID uuid.UUID) error
	UpdateCurrency(ctx context.Context, cartID uuid.UUID, currency enums.Currency) error
	MarkConverted(ctx context.Context, cartID uuid.UUID) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	FindStaleGuestCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func scopeOwner(q *gorm.DB, owner types.OwnerKey) *gorm.DB {
	if owner.IsUser() {
		return q.Where("owner_kind = ? AND user_id = ?", enums.OwnerKindUser, owner.UserID)
	}
	return q.Where("owner_kind = ? AND guest_session_id = ?", enums.OwnerKindGuest, owner.GuestSessionID)
}

func (r *repository) FindActiveCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Preload("Items.Product").
		Where("status = ?", enums.CartStatusActive)
	err := scopeOwner(q, owner).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) FindItem(ctx context.Context, cartID, productID uuid.UUID, variantKey string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variantKey).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Line mutations update single rows so concurrent edits from two tabs
// resolve last-write-wins per line, never clobbering the whole cart.
func (r *repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

func (r *repository) UpdateItemPrice(ctx context.Context, itemID uuid.UUID, priceCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("price_at_add_cents", priceCents).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
}

func (r *repository) UpdateCurrency(ctx context.Context, cartID uuid.UUID, currency enums.Currency) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("currency", currency).Error
}

func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("status", enums.CartStatusConverted).Error
}

func (r *repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}

func (r *repository) FindStaleGuestCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	q := r.db.WithContext(ctx).
		Where("owner_kind = ? AND status = ? AND updated_at < ?", enums.OwnerKindGuest, enums.CartStatusActive, cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}
