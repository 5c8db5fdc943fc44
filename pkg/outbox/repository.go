package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

func (r *Repository) ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	var count int64
	err := tx.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_type = ? AND aggregate_id = ?", eventType, aggregateType, aggregateID).
		Count(&count).Error
	return count > 0, err
}

// FetchUnpublished returns publishable rows oldest first. Rows that have
// exhausted maxAttempts are left behind for operator inspection.
func (r *Repository) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(id uuid.UUID) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now(),
		}).Error
}

// DeletePublishedBefore removes published rows older than the cutoff.
// Used by the retention cron; unpublished rows are never touched.
func (r *Repository) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func (r *Repository) MarkFailed(id uuid.UUID, err error) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}
