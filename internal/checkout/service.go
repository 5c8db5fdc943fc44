package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/internal/cart"
	"github.com/bluewud/storefront-backend/internal/catalog"
	"github.com/bluewud/storefront-backend/internal/coupons"
	"github.com/bluewud/storefront-backend/internal/orders"
	"github.com/bluewud/storefront-backend/internal/pricing"
	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/metrics"
	"github.com/bluewud/storefront-backend/pkg/outbox"
	"github.com/bluewud/storefront-backend/pkg/outbox/payloads"
	"github.com/bluewud/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input carries everything a checkout attempt needs beyond the cart itself.
type Input struct {
	Owner           types.OwnerKey
	GuestEmail      string
	CouponCode      string
	Currency        enums.Currency
	ExpressShipping bool
	ShippingAddress types.Address
}

// Result is returned on a completed checkout.
type Result struct {
	Order  *models.Order   `json:"order"`
	Totals *pricing.Totals `json:"totals"`
}

// Service sequences a checkout attempt: price refresh, stock validation,
// pricing, atomic stock decrement, order creation, cart clearing. Any
// failure before the order is durable leaves the cart intact.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	cartSvc     cart.Service
	cartRepo    cart.Repository
	catalogRepo catalog.Repository
	stock       catalog.StockService
	engine      *pricing.Engine
	coupons     coupons.Service
	ordersRepo  orders.Repository
	outbox      outboxPublisher
	tx          txRunner
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
}

// NewService builds the checkout orchestrator with the required dependencies.
func NewService(
	cartSvc cart.Service,
	cartRepo cart.Repository,
	catalogRepo catalog.Repository,
	stock catalog.StockService,
	engine *pricing.Engine,
	couponSvc coupons.Service,
	ordersRepo orders.Repository,
	outboxSvc outboxPublisher,
	tx txRunner,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartSvc:     cartSvc,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		stock:       stock,
		engine:      engine,
		coupons:     couponSvc,
		ordersRepo:  ordersRepo,
		outbox:      outboxSvc,
		tx:          tx,
		logg:        logg,
		metrics:     checkoutMetrics,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()
	result, err := s.checkout(ctx, input)
	s.metrics.ObserveDuration(time.Since(started))
	s.metrics.IncAttempt(outcomeFor(err))
	return result, err
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeCompleted
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeFailed
	}
	switch typed.Code() {
	case pkgerrors.CodeOutOfStock:
		return metrics.OutcomeOutOfStock
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

func (s *service) checkout(ctx context.Context, input Input) (*Result, error) {
	if err := input.Owner.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner")
	}
	if input.Owner.IsGuest() && input.GuestEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest checkout requires an email")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	ctx = s.logg.WithOwnerKey(ctx, input.Owner.String())

	// price refresh: accept catalog changes, never charge a stale snapshot
	cartRecord, err := s.refreshCart(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	if len(cartRecord.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	currency := input.Currency
	if currency == "" {
		currency = cartRecord.Currency
	}

	lines := stockLines(cartRecord.Items)

	// read-then-decide; the decrement below re-checks atomically
	shortages, err := s.stock.Validate(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, outOfStock(shortages)
	}

	var rule *coupons.DiscountRule
	if input.CouponCode != "" {
		rule, err = s.coupons.Resolve(ctx, input.CouponCode, subtotalCents(cartRecord.Items), time.Now())
		if err != nil {
			return nil, s.couponFailure(cartRecord, currency, input.ExpressShipping, err)
		}
	}

	totals, err := s.engine.ComputeTotals(priceLines(cartRecord.Items), rule, currency, input.ExpressShipping)
	if err != nil {
		return nil, err
	}

	// atomic conditional decrement in its own committed transaction
	if err := s.reserveStock(ctx, lines); err != nil {
		return nil, err
	}

	order, err := s.persistOrder(ctx, input, cartRecord, totals, rule)
	if err != nil {
		// the one required rollback: return what was just reserved
		if relErr := s.releaseStock(ctx, lines); relErr != nil {
			err = multierr.Append(err, relErr)
		}
		return nil, err
	}

	// order is durable; a leftover cart is cosmetic
	if err := s.clearCart(ctx, input.Owner, cartRecord.ID); err != nil {
		s.logg.Error(ctx, "clearing cart after checkout", err)
	}

	return &Result{Order: order, Totals: totals}, nil
}

// refreshCart reloads the cart, re-fetches every line's current catalog
// price, persists changed snapshots, and prunes lines whose product is no
// longer available.
func (s *service) refreshCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error) {
	cartRecord, err := s.cartSvc.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(cartRecord.Items) == 0 {
		return cartRecord, nil
	}

	ids := make([]uuid.UUID, 0, len(cartRecord.Items))
	for _, item := range cartRecord.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalogRepo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		for i := range cartRecord.Items {
			item := &cartRecord.Items[i]
			product, ok := byID[item.ProductID]
			if !ok || !product.IsActive {
				if err := repo.DeleteItem(ctx, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune cart item")
				}
				item.Quantity = 0
				continue
			}
			if product.PriceCents != item.PriceAtAddCents {
				if err := repo.UpdateItemPrice(ctx, item.ID, product.PriceCents); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh cart price")
				}
				item.PriceAtAddCents = product.PriceCents
			}
			item.Product = &product
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kept := cartRecord.Items[:0]
	for _, item := range cartRecord.Items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	cartRecord.Items = kept
	return cartRecord, nil
}

func stockLines(items []models.CartItem) []catalog.Line {
	lines := make([]catalog.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, catalog.Line{
			ProductID:  item.ProductID,
			VariantKey: item.VariantKey,
			Quantity:   item.Quantity,
		})
	}
	return lines
}

func priceLines(items []models.CartItem) []pricing.LineInput {
	lines := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.LineInput{
			Quantity:       item.Quantity,
			UnitPriceCents: item.PriceAtAddCents,
		})
	}
	return lines
}

func subtotalCents(items []models.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity * item.PriceAtAddCents
	}
	return total
}

func outOfStock(shortages []catalog.Shortage) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for checkout").
		WithDetails(map[string]any{"shortages": shortages})
}

// couponFailure rejects the attempt but attaches the totals the cart would
// cost without the coupon, so the caller can re-prompt instead of silently
// placing a discounted or undiscounted order.
func (s *service) couponFailure(cartRecord *models.Cart, currency enums.Currency, express bool, cause error) error {
	typed := pkgerrors.As(cause)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return cause
	}

	details := map[string]any{}
	if prior, ok := typed.Details().(map[string]any); ok {
		for k, v := range prior {
			details[k] = v
		}
	}
	if totals, err := s.engine.ComputeTotals(priceLines(cartRecord.Items), nil, currency, express); err == nil {
		details["totals_without_coupon"] = totals
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon").WithDetails(details)
}

func (s *service) reserveStock(ctx context.Context, lines []catalog.Line) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		shortages, err := s.stock.Decrement(ctx, tx, lines)
		if err != nil {
			return err
		}
		if len(shortages) > 0 {
			return outOfStock(shortages)
		}
		return nil
	})
}

func (s *service) releaseStock(ctx context.Context, lines []catalog.Line) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range lines {
			if err := s.stock.Release(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) persistOrder(ctx context.Context, input Input, cartRecord *models.Cart, totals *pricing.Totals, rule *coupons.DiscountRule) (*models.Order, error) {
	order := buildOrder(input, cartRecord, totals, rule)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		order = created

		if rule != nil {
			if err := s.coupons.RecordUsage(ctx, tx, rule.CouponID); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Owner:         &outbox.OwnerRef{OwnerKey: input.Owner.String()},
			Data: payloads.OrderCreated{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				OwnerKey:    input.Owner.String(),
				Currency:    totals.Currency.String(),
				TotalCents:  totals.GrandTotalCents,
				LineCount:   len(order.LineItems),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	return order, nil
}

func buildOrder(input Input, cartRecord *models.Cart, totals *pricing.Totals, rule *coupons.DiscountRule) *models.Order {
	order := &models.Order{
		OrderNumber:    orders.NewOrderNumber(time.Now()),
		OwnerKind:      input.Owner.Kind,
		Status:         enums.OrderStatusPending,
		Currency:       totals.Currency,
		ConversionRate: totals.ConversionRate,
		SubtotalCents:  totals.SubtotalCents,
		DiscountCents:  totals.DiscountCents,
		ShippingCents:  totals.ShippingCents,
		TotalCents:     totals.GrandTotalCents,
		ShippingAddr:   input.ShippingAddress,
	}

	if input.Owner.IsUser() {
		userID := input.Owner.UserID
		order.UserID = &userID
	} else {
		sessionID := input.Owner.GuestSessionID
		email := input.GuestEmail
		order.GuestSessionID = &sessionID
		order.GuestEmail = &email
	}

	if rule != nil {
		code := rule.Code
		order.CouponCode = &code
	}

	for _, item := range cartRecord.Items {
		line := models.OrderLineItem{
			ProductID:      item.ProductID,
			VariantKey:     item.VariantKey,
			Quantity:       item.Quantity,
			UnitPriceCents: item.PriceAtAddCents,
			LineTotalCents: item.Quantity * item.PriceAtAddCents,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.SKU = item.Product.SKU
		}
		order.LineItems = append(order.LineItems, line)
	}

	return order
}

// clearCart empties the cart and retires the record so the next read lazily
// starts a fresh one.
func (s *service) clearCart(ctx context.Context, owner types.OwnerKey, cartID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		if err := repo.DeleteItems(ctx, cartID); err != nil {
			return err
		}
		if err := repo.MarkConverted(ctx, cartID); err != nil {
			return err
		}
		return nil
	})
}
