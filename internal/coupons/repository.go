package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	// IncrementUsage bumps used_count, refusing to pass the usage limit.
	// Returns the number of rows updated (0 means the limit was hit).
	IncrementUsage(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE coupons
		SET used_count = used_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)
	`, id)
	return res.RowsAffected, res.Error
}
