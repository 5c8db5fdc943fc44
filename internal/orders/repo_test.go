package orders

import (
	"context"
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
	"github.com/bluewud/storefront-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  owner_kind TEXT NOT NULL,
  user_id TEXT,
  guest_session_id TEXT,
  guest_email TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL,
  conversion_rate TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  coupon_code TEXT,
  shipping_address TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_key TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

type orderSeed struct {
	userID    *uuid.UUID
	sessionID string
	email     string
	created   time.Time
}

func seedOrder(t *testing.T, db *gorm.DB, seed orderSeed) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    NewOrderNumber(seed.created),
		Status:         enums.OrderStatusPending,
		Currency:       enums.CurrencyINR,
		ConversionRate: decimal.NewFromInt(1),
		SubtotalCents:  10000,
		TotalCents:     11000,
		ShippingCents:  1000,
		CreatedAt:      seed.created,
		UpdatedAt:      seed.created,
	}
	if seed.userID != nil {
		order.OwnerKind = enums.OwnerKindUser
		order.UserID = seed.userID
	} else {
		order.OwnerKind = enums.OwnerKindGuest
		sessionID := seed.sessionID
		email := seed.email
		order.GuestSessionID = &sessionID
		order.GuestEmail = &email
	}
	require.NoError(t, db.Create(order).Error)

	line := &models.OrderLineItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ProductID:      uuid.New(),
		ProductName:    "Seeded Product",
		SKU:            "SKU-SEED",
		Quantity:       1,
		UnitPriceCents: 10000,
		LineTotalCents: 10000,
		CreatedAt:      seed.created,
	}
	require.NoError(t, db.Create(line).Error)
	return order
}

func TestRepositoryFindOrderPreloadsLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	seeded := seedOrder(t, db, orderSeed{userID: &userID, created: time.Now().UTC()})

	found, err := repo.FindOrder(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.OrderNumber, found.OrderNumber)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, "Seeded Product", found.LineItems[0].ProductName)
}

func TestRepositoryListUserOrdersPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC()
	oldest := seedOrder(t, db, orderSeed{userID: &userID, created: now.Add(-2 * time.Hour)})
	middle := seedOrder(t, db, orderSeed{userID: &userID, created: now.Add(-time.Hour)})
	newest := seedOrder(t, db, orderSeed{userID: &userID, created: now})

	// someone else's order must never appear
	otherID := uuid.New()
	seedOrder(t, db, orderSeed{userID: &otherID, created: now})

	rows, err := repo.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	page := pageFromRows(rows, 2)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	assert.Equal(t, middle.ID, page.Orders[1].ID)
	require.NotNil(t, page.NextCursor)

	rows, err = repo.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2, Cursor: *page.NextCursor})
	require.NoError(t, err)
	page = pageFromRows(rows, 2)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, oldest.ID, page.Orders[0].ID)
	assert.Nil(t, page.NextCursor)
}

func TestRepositoryListGuestOrdersRequiresBothIdentifiers(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	match := seedOrder(t, db, orderSeed{sessionID: "sess-g1", email: "g@example.com", created: now})
	seedOrder(t, db, orderSeed{sessionID: "sess-g1", email: "other@example.com", created: now})
	seedOrder(t, db, orderSeed{sessionID: "sess-g2", email: "g@example.com", created: now})

	rows, err := repo.ListGuestOrders(context.Background(), "g@example.com", "sess-g1", pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, match.ID, rows[0].ID)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	seeded := seedOrder(t, db, orderSeed{userID: &userID, created: time.Now().UTC()})

	require.NoError(t, repo.UpdateStatus(context.Background(), seeded.ID, enums.OrderStatusConfirmed))

	found, err := repo.FindOrder(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
}

func TestRepositoryLinkGuestOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	first := seedOrder(t, db, orderSeed{sessionID: "sess-link", email: "link@example.com", created: now.Add(-time.Hour)})
	second := seedOrder(t, db, orderSeed{sessionID: "sess-link", email: "link@example.com", created: now})
	unrelated := seedOrder(t, db, orderSeed{sessionID: "sess-other", email: "link@example.com", created: now})

	userID := uuid.New()
	linked, err := repo.LinkGuestOrders(context.Background(), "link@example.com", "sess-link", userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), linked)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		found, err := repo.FindOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, enums.OwnerKindUser, found.OwnerKind)
		require.NotNil(t, found.UserID)
		assert.Equal(t, userID, *found.UserID)
		// guest identity is kept for audit
		require.NotNil(t, found.GuestSessionID)
		assert.Equal(t, "sess-link", *found.GuestSessionID)
	}

	found, err := repo.FindOrder(context.Background(), unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OwnerKindGuest, found.OwnerKind)

	// re-linking is a no-op once the owner kind changed
	linked, err = repo.LinkGuestOrders(context.Background(), "link@example.com", "sess-link", userID)
	require.NoError(t, err)
	assert.Zero(t, linked)
}
