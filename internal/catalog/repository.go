package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
)

// Repository defines read access to the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindInventoryByIDs(ctx context.Context, ids []uuid.UUID) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindInventoryByIDs(ctx context.Context, ids []uuid.UUID) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
