package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
)

// Line is one requested (product, variant, quantity) triple. Stock is
// tracked per product, so quantities for variants of the same product are
// aggregated before checking.
type Line struct {
	ProductID  uuid.UUID
	VariantKey string
	Quantity   int
}

// Shortage reports one cart line that cannot be satisfied.
type Shortage struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantKey string    `json:"variant_key,omitempty"`
	Requested  int       `json:"requested"`
	Available  int       `json:"available"`
}

// StockService validates and mutates per-product stock counters.
type StockService interface {
	// Validate performs a single batched availability read. It returns the
	// shortage list; an empty list means every line can be satisfied. It
	// does not reserve anything.
	Validate(ctx context.Context, lines []Line) ([]Shortage, error)

	// Decrement atomically moves requested quantities from available to
	// reserved, one conditional update per product. The first product with
	// insufficient stock aborts with a non-empty shortage list; the caller
	// owns the transaction and must roll back.
	Decrement(ctx context.Context, tx *gorm.DB, lines []Line) ([]Shortage, error)

	// Release returns reserved stock to available, used as the
	// compensating action when order persistence fails and when a
	// pending or confirmed order is cancelled.
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error

	// Consume burns reserved stock once an order is confirmed.
	Consume(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type stockService struct {
	repo Repository
}

// NewStockService builds the stock validator over the catalog repository.
func NewStockService(repo Repository) (StockService, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &stockService{repo: repo}, nil
}

// requestedPerProduct aggregates line quantities by product, preserving
// first-seen product order so shortage output is stable.
func requestedPerProduct(lines []Line) ([]uuid.UUID, map[uuid.UUID]int) {
	order := make([]uuid.UUID, 0, len(lines))
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if _, seen := totals[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		totals[line.ProductID] += line.Quantity
	}
	return order, totals
}

func (s *stockService) Validate(ctx context.Context, lines []Line) ([]Shortage, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	productIDs, totals := requestedPerProduct(lines)

	items, err := s.repo.FindInventoryByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}

	available := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		available[item.ProductID] = item.AvailableQty
	}

	var shortages []Shortage
	for _, line := range lines {
		if totals[line.ProductID] <= available[line.ProductID] {
			continue
		}
		shortages = append(shortages, Shortage{
			ProductID:  line.ProductID,
			VariantKey: line.VariantKey,
			Requested:  line.Quantity,
			Available:  available[line.ProductID],
		})
	}
	return shortages, nil
}

func (s *stockService) Decrement(ctx context.Context, tx *gorm.DB, lines []Line) ([]Shortage, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	productIDs, totals := requestedPerProduct(lines)

	for _, productID := range productIDs {
		qty := totals[productID]
		if qty <= 0 {
			continue
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET available_qty = available_qty - ?,
				reserved_qty = reserved_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND available_qty >= ?
		`, qty, qty, productID, qty)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
		}
		if res.RowsAffected == 0 {
			shortages, err := s.shortagesFor(ctx, tx, lines, productID)
			if err != nil {
				return nil, err
			}
			return shortages, nil
		}
	}
	return nil, nil
}

// shortagesFor reloads availability for the product that failed its
// conditional decrement and reports every line touching it.
func (s *stockService) shortagesFor(ctx context.Context, tx *gorm.DB, lines []Line, productID uuid.UUID) ([]Shortage, error) {
	items, err := s.repo.WithTx(tx).FindInventoryByIDs(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
	}
	available := 0
	if len(items) > 0 {
		available = items[0].AvailableQty
	}

	var shortages []Shortage
	for _, line := range lines {
		if line.ProductID != productID {
			continue
		}
		shortages = append(shortages, Shortage{
			ProductID:  line.ProductID,
			VariantKey: line.VariantKey,
			Requested:  line.Quantity,
			Available:  available,
		})
	}
	return shortages, nil
}

func (s *stockService) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_qty >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	return nil
}

func (s *stockService) Consume(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory consume")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_qty >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "consume inventory")
	}
	return nil
}
