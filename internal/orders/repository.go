package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	"github.com/bluewud/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for immutable orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListGuestOrders(ctx context.Context, email, sessionID string, params pagination.Params) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	// LinkGuestOrders reassigns every guest order matching the identity
	// pair to the user. Guest fields are kept for audit.
	LinkGuestOrders(ctx context.Context, email, sessionID string, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_line_items.created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) listOrders(ctx context.Context, scope func(*gorm.DB) *gorm.DB, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := scope(r.db.WithContext(ctx).Preload("LineItems"))
	if cursor != nil {
		q = q.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return r.listOrders(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	}, params)
}

func (r *repository) ListGuestOrders(ctx context.Context, email, sessionID string, params pagination.Params) ([]models.Order, error) {
	return r.listOrders(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("guest_email = ? AND guest_session_id = ?", email, sessionID)
	}, params)
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) LinkGuestOrders(ctx context.Context, email, sessionID string, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("owner_kind = ? AND guest_email = ? AND guest_session_id = ?", enums.OwnerKindGuest, email, sessionID).
		Updates(map[string]any{
			"owner_kind": enums.OwnerKindUser,
			"user_id":    userID,
		})
	return res.RowsAffected, res.Error
}
