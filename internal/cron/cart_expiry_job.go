package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/internal/cart"
	"github.com/bluewud/storefront-backend/pkg/enums"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/outbox"
	"github.com/bluewud/storefront-backend/pkg/outbox/payloads"
	"github.com/bluewud/storefront-backend/pkg/types"
)

const (
	defaultGuestCartTTL = 30 * 24 * time.Hour
	expiryBatchSize     = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CartExpiryJobParams configure the guest cart expiry sweep.
type CartExpiryJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository cart.Repository
	Outbox     outboxEmitter
	TTL        time.Duration
}

// NewCartExpiryJob builds the job that deletes guest carts idle past the TTL.
// User carts are never expired; only anonymous sessions age out.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultGuestCartTTL
	}
	return &cartExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   cart.Repository
	outbox outboxEmitter
	ttl    time.Duration
	now    func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	carts, err := j.repo.FindStaleGuestCarts(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale guest carts: %w", err)
	}

	expired := 0
	for _, stale := range carts {
		if err := j.expireCart(ctx, stale.ID, stale.GuestSessionID, stale.UpdatedAt); err != nil {
			return err
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
	})
	j.logg.Info(logCtx, "guest cart expiry sweep complete")
	return nil
}

func (j *cartExpiryJob) expireCart(ctx context.Context, cartID uuid.UUID, sessionID *string, lastTouched time.Time) error {
	owner := ""
	if sessionID != nil {
		owner = types.OwnerForGuest(*sessionID).String()
	}
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		if err := repo.DeleteItems(ctx, cartID); err != nil {
			return fmt.Errorf("delete expired cart items: %w", err)
		}
		if err := repo.DeleteCart(ctx, cartID); err != nil {
			return fmt.Errorf("delete expired cart: %w", err)
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartExpired,
			AggregateType: enums.AggregateCart,
			AggregateID:   cartID,
			Version:       1,
			Data: payloads.CartExpired{
				CartID:   cartID,
				OwnerKey: owner,
				IdleFor:  j.now().UTC().Sub(lastTouched).Truncate(time.Minute).String(),
			},
		})
	})
}
