package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductLoader) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

// stubCartRepo keeps a single cart and its items in memory.
type stubCartRepo struct {
	cart    *models.Cart
	findErr error

	createdItems  []models.CartItem
	updatedQtys   map[uuid.UUID]int
	deletedItems  []uuid.UUID
	touched       int
	currencySetTo enums.Currency
}

func newStubCartRepo(cart *models.Cart) *stubCartRepo {
	return &stubCartRepo{cart: cart, updatedQtys: map[uuid.UUID]int{}}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCartRepo) FindActiveCart(ctx context.Context, owner types.OwnerKey) (*models.Cart, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.ID = uuid.New()
	s.cart = cart
	return cart, nil
}

func (s *stubCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, variantKey string) (*models.CartItem, error) {
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range s.cart.Items {
		item := &s.cart.Items[i]
		if item.ProductID == productID && item.VariantKey == variantKey {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	s.createdItems = append(s.createdItems, *item)
	s.cart.Items = append(s.cart.Items, *item)
	return nil
}

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	s.updatedQtys[itemID] = quantity
	for i := range s.cart.Items {
		if s.cart.Items[i].ID == itemID {
			s.cart.Items[i].Quantity = quantity
		}
	}
	return nil
}

func (s *stubCartRepo) UpdateItemPrice(ctx context.Context, itemID uuid.UUID, priceCents int) error {
	return nil
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	s.deletedItems = append(s.deletedItems, itemID)
	kept := s.cart.Items[:0]
	for _, item := range s.cart.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	s.cart.Items = kept
	return nil
}

func (s *stubCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	if s.cart != nil {
		s.cart.Items = nil
	}
	return nil
}

func (s *stubCartRepo) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	s.touched++
	return nil
}

func (s *stubCartRepo) UpdateCurrency(ctx context.Context, cartID uuid.UUID, currency enums.Currency) error {
	s.currencySetTo = currency
	if s.cart != nil {
		s.cart.Currency = currency
	}
	return nil
}

func (s *stubCartRepo) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	if s.cart != nil {
		s.cart.Status = enums.CartStatusConverted
	}
	return nil
}

func (s *stubCartRepo) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	s.cart = nil
	return nil
}

func (s *stubCartRepo) FindStaleGuestCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository, loader productLoader) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, loader, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func activeProduct(priceCents, available int) *models.Product {
	id := uuid.New()
	return &models.Product{
		ID:         id,
		SKU:        "SKU-" + id.String()[:8],
		Name:       "Test Product",
		PriceCents: priceCents,
		IsActive:   true,
		Inventory:  &models.InventoryItem{ProductID: id, AvailableQty: available},
	}
}

func userCart(owner types.OwnerKey) *models.Cart {
	userID := owner.UserID
	return &models.Cart{
		ID:        uuid.New(),
		OwnerKind: enums.OwnerKindUser,
		UserID:    &userID,
		Status:    enums.CartStatusActive,
		Currency:  enums.CurrencyINR,
	}
}

func TestGetCartReturnsEmptyCartWhenNonePersisted(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{})
	owner := types.OwnerForGuest("sess-1")

	cart, err := svc.GetCart(context.Background(), owner)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.ID != uuid.Nil {
		t.Fatal("lazy cart must not be persisted")
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
	if cart.Currency != enums.CurrencyINR {
		t.Fatalf("expected INR default, got %s", cart.Currency)
	}
	if cart.GuestSessionID == nil || *cart.GuestSessionID != "sess-1" {
		t.Fatal("guest session not carried onto the empty cart")
	}
}

func TestGetCartRejectsInvalidOwner(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{})

	_, err := svc.GetCart(context.Background(), types.OwnerKey{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddItemCreatesCartAndLine(t *testing.T) {
	t.Parallel()
	product := activeProduct(25000, 10)
	repo := newStubCartRepo(nil)
	svc := newTestService(t, repo, &stubProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}})
	owner := types.OwnerForUser(uuid.New())

	cart, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
	line := cart.Items[0]
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", line.Quantity)
	}
	if line.PriceAtAddCents != 25000 {
		t.Fatalf("expected price snapshot 25000, got %d", line.PriceAtAddCents)
	}
	if repo.touched == 0 {
		t.Fatal("expected cart to be touched")
	}
}

func TestAddItemSumsQuantityForExistingLine(t *testing.T) {
	t.Parallel()
	product := activeProduct(25000, 10)
	owner := types.OwnerForUser(uuid.New())
	existing := userCart(owner)
	existing.Items = []models.CartItem{{
		ID:              uuid.New(),
		CartID:          existing.ID,
		ProductID:       product.ID,
		Quantity:        3,
		PriceAtAddCents: 25000,
	}}
	repo := newStubCartRepo(existing)
	svc := newTestService(t, repo, &stubProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}})

	cart, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected single merged line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("expected summed quantity 5, got %d", cart.Items[0].Quantity)
	}
	if len(repo.createdItems) != 0 {
		t.Fatal("existing line should be updated, not duplicated")
	}
}

func TestAddItemDistinctVariantsAreSeparateLines(t *testing.T) {
	t.Parallel()
	product := activeProduct(25000, 10)
	owner := types.OwnerForUser(uuid.New())
	existing := userCart(owner)
	existing.Items = []models.CartItem{{
		ID:         uuid.New(),
		CartID:     existing.ID,
		ProductID:  product.ID,
		VariantKey: "size:M",
		Quantity:   1,
	}}
	repo := newStubCartRepo(existing)
	svc := newTestService(t, repo, &stubProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}})

	cart, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, VariantKey: "size:L", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 variant lines, got %d", len(cart.Items))
	}
}

func TestAddItemClampsToAvailableStock(t *testing.T) {
	t.Parallel()
	product := activeProduct(25000, 4)
	repo := newStubCartRepo(nil)
	svc := newTestService(t, repo, &stubProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}})
	owner := types.OwnerForUser(uuid.New())

	cart, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 9})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.Items[0].Quantity != 4 {
		t.Fatalf("expected clamp to 4, got %d", cart.Items[0].Quantity)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	t.Parallel()
	product := activeProduct(25000, 0)
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}})

	_, err := svc.AddItem(context.Background(), types.OwnerForUser(uuid.New()), AddItemInput{ProductID: product.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock error, got %v", err)
	}
}

func TestAddItemUnknownOrInactiveProduct(t *testing.T) {
	t.Parallel()
	inactive := activeProduct(25000, 10)
	inactive.IsActive = false
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{products: map[uuid.UUID]*models.Product{inactive.ID: inactive}})

	_, err := svc.AddItem(context.Background(), types.OwnerForUser(uuid.New()), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}

	_, err = svc.AddItem(context.Background(), types.OwnerForUser(uuid.New()), AddItemInput{ProductID: inactive.ID, Quantity: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for inactive product, got %v", err)
	}
}

func TestAddItemValidatesInput(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{})
	owner := types.OwnerForUser(uuid.New())

	_, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: uuid.New(), Quantity: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	_, err = svc.AddItem(context.Background(), owner, AddItemInput{Quantity: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for nil product, got %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()
	owner := types.OwnerForUser(uuid.New())
	existing := userCart(owner)
	itemID := uuid.New()
	productID := uuid.New()
	existing.Items = []models.CartItem{{ID: itemID, CartID: existing.ID, ProductID: productID, Quantity: 2}}
	repo := newStubCartRepo(existing)
	svc := newTestService(t, repo, &stubProductLoader{})

	cart, err := svc.UpdateQuantity(context.Background(), owner, productID, "", 0)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected line removed, got %d items", len(cart.Items))
	}
	if len(repo.deletedItems) != 1 || repo.deletedItems[0] != itemID {
		t.Fatalf("expected delete of %s, got %v", itemID, repo.deletedItems)
	}
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	t.Parallel()
	owner := types.OwnerForUser(uuid.New())
	repo := newStubCartRepo(userCart(owner))
	svc := newTestService(t, repo, &stubProductLoader{})

	_, err := svc.UpdateQuantity(context.Background(), owner, uuid.New(), "", 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateQuantityRejectsNegative(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{})

	_, err := svc.UpdateQuantity(context.Background(), types.OwnerForUser(uuid.New()), uuid.New(), "", -1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetCurrency(t *testing.T) {
	t.Parallel()
	owner := types.OwnerForUser(uuid.New())
	repo := newStubCartRepo(userCart(owner))
	svc := newTestService(t, repo, &stubProductLoader{})

	cart, err := svc.SetCurrency(context.Background(), owner, enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("SetCurrency: %v", err)
	}
	if cart.Currency != enums.CurrencyUSD {
		t.Fatalf("expected USD, got %s", cart.Currency)
	}
	if repo.currencySetTo != enums.CurrencyUSD {
		t.Fatal("currency not persisted")
	}

	_, err = svc.SetCurrency(context.Background(), owner, enums.Currency("JPY"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for JPY, got %v", err)
	}
}

func TestClearCartIsNoopWithoutCart(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, newStubCartRepo(nil), &stubProductLoader{})

	if err := svc.ClearCart(context.Background(), types.OwnerForGuest("sess")); err != nil {
		t.Fatalf("ClearCart on absent cart: %v", err)
	}
}

func TestGetCartWrapsRepoFailure(t *testing.T) {
	t.Parallel()
	repo := newStubCartRepo(nil)
	repo.findErr = errors.New("connection reset")
	svc := newTestService(t, repo, &stubProductLoader{})

	_, err := svc.GetCart(context.Background(), types.OwnerForGuest("sess"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
