package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  max_discount_cents INTEGER,
  min_order_value_cents INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, usageLimit *int, usedCount int) *models.Coupon {
	t.Helper()

	now := time.Now().UTC()
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		Type:          enums.CouponTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    usageLimit,
		UsedCount:     usedCount,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestRepositoryFindByCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	seeded := seedCoupon(t, db, "FESTIVE20", nil, 0)

	found, err := repo.FindByCode(context.Background(), "FESTIVE20")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByCode(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryIncrementUsageHonorsLimit(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	limit := 2
	coupon := seedCoupon(t, db, "LIMITED", &limit, 1)

	rows, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// used_count now equals the limit; further increments must refuse
	rows, err = repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	var reloaded models.Coupon
	require.NoError(t, db.Where("id = ?", coupon.ID).First(&reloaded).Error)
	assert.Equal(t, 2, reloaded.UsedCount)
}

func TestRepositoryIncrementUsageUnlimited(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	coupon := seedCoupon(t, db, "FOREVER", nil, 999)

	rows, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestRepositoryWithTxRebinds(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	seedCoupon(t, db, "TXTEST", nil, 0)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		scoped := repo.WithTx(tx)
		_, err := scoped.FindByCode(context.Background(), "TXTEST")
		return err
	}))

	// nil tx falls back to the base connection
	assert.Equal(t, repo, repo.WithTx(nil))
}
