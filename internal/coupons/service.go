package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
)

// RejectionReason says why a coupon could not be applied. Surfaced in error
// details so the UI can message each case distinctly from "not found".
type RejectionReason string

const (
	ReasonNotFound          RejectionReason = "not_found"
	ReasonInactive          RejectionReason = "inactive"
	ReasonNotStarted        RejectionReason = "not_started"
	ReasonExpired           RejectionReason = "expired"
	ReasonMinSpendNotMet    RejectionReason = "min_spend_not_met"
	ReasonUsageLimitReached RejectionReason = "usage_limit_reached"
)

// DiscountRule is the resolved, applicable discount for a cart.
type DiscountRule struct {
	CouponID         uuid.UUID
	Code             string
	Type             enums.CouponType
	Value            decimal.Decimal
	MaxDiscountCents *int
}

// DiscountCents computes the base-currency discount for the given subtotal.
// Percentage discounts round half up; both kinds are capped so the
// discounted subtotal cannot go negative.
func (r DiscountRule) DiscountCents(subtotalCents int) int {
	var discount int
	switch r.Type {
	case enums.CouponTypePercentage:
		d := decimal.NewFromInt(int64(subtotalCents)).
			Mul(r.Value).
			Div(decimal.NewFromInt(100)).
			Round(0)
		discount = int(d.IntPart())
	case enums.CouponTypeFixed:
		// fixed value is in base-currency rupees
		d := r.Value.Mul(decimal.NewFromInt(100)).Round(0)
		discount = int(d.IntPart())
	}
	if r.MaxDiscountCents != nil && discount > *r.MaxDiscountCents {
		discount = *r.MaxDiscountCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// Service resolves coupon codes against cart contents.
type Service interface {
	// Resolve returns the applicable discount rule, or a CodeValidation
	// error whose details carry the RejectionReason.
	Resolve(ctx context.Context, code string, subtotalCents int, now time.Time) (*DiscountRule, error)
	// RecordUsage bumps the usage counter inside the checkout transaction.
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the coupon resolver.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

func rejection(code string, reason RejectionReason) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon").
		WithDetails(map[string]any{"code": code, "reason": string(reason)})
}

func (s *service) Resolve(ctx context.Context, code string, subtotalCents int, now time.Time) (*DiscountRule, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, rejection(code, ReasonNotFound)
	}

	coupon, err := s.repo.FindByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rejection(trimmed, ReasonNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if reason, ok := inapplicable(coupon, subtotalCents, now); !ok {
		return nil, rejection(trimmed, reason)
	}

	return &DiscountRule{
		CouponID:         coupon.ID,
		Code:             coupon.Code,
		Type:             coupon.Type,
		Value:            coupon.DiscountValue,
		MaxDiscountCents: coupon.MaxDiscountCents,
	}, nil
}

func inapplicable(coupon *models.Coupon, subtotalCents int, now time.Time) (RejectionReason, bool) {
	switch {
	case !coupon.IsActive:
		return ReasonInactive, false
	case now.Before(coupon.ValidFrom):
		return ReasonNotStarted, false
	case now.After(coupon.ValidUntil):
		return ReasonExpired, false
	case subtotalCents < coupon.MinOrderValueCents:
		return ReasonMinSpendNotMet, false
	case coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit:
		return ReasonUsageLimitReached, false
	}
	return "", true
}

func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for coupon usage")
	}
	affected, err := s.repo.WithTx(tx).IncrementUsage(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	if affected == 0 {
		return rejection("", ReasonUsageLimitReached)
	}
	return nil
}
