package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/events"
	"bazaar/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory catalog store. IncrementStock is a plain read-modify-write under
// a mutex, like the per-row atomic update the real store provides.
type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product

	incrementCalls int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) add(p *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *mockProductRepository) stockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.add(product)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepository) List(ctx context.Context, search string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockProductRepository) UpdateFields(ctx context.Context, id uuid.UUID, update domain.ProductUpdate) error {
	return nil
}

func (m *mockProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementCalls++
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += delta
	return nil
}

// In-memory order store
type mockOrderRepository struct {
	mu     sync.Mutex
	orders []*domain.Order

	insertErr   error
	insertCalls int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{}
}

func (m *mockOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	sortOrdersDesc(out)
	return out, nil
}

func (m *mockOrderRepository) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}

	out := []*domain.Order{}
	for _, o := range m.orders {
		for _, item := range o.Items {
			if wanted[item.ProductID] {
				out = append(out, o)
				break
			}
		}
	}
	sortOrdersDesc(out)
	return out, nil
}

func sortOrdersDesc(orders []*domain.Order) {
	for i := 1; i < len(orders); i++ {
		for j := i; j > 0 && orders[j].CreatedAt.After(orders[j-1].CreatedAt); j-- {
			orders[j], orders[j-1] = orders[j-1], orders[j]
		}
	}
}

type mockUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserRepo) add(u *domain.User) {
	m.users[u.ID] = u
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

type fixture struct {
	products *mockProductRepository
	orders   *mockOrderRepository
	users    *mockUserRepo
	service  OrderService

	buyer *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := newMockProductRepository()
	orders := newMockOrderRepository()
	users := newMockUserRepo()

	buyer := &domain.User{
		ID:    uuid.New(),
		Name:  "Test Buyer",
		Email: "buyer@example.com",
		Role:  domain.RoleBuyer,
	}
	users.add(buyer)

	logger, _ := zap.NewDevelopment()
	svc := NewOrderService(orders, products, users, events.NopPublisher{}, logger)

	return &fixture{
		products: products,
		orders:   orders,
		users:    users,
		service:  svc,
		buyer:    buyer,
	}
}

func (f *fixture) addProduct(sellerID uuid.UUID, name string, price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Images:    []string{"img-1", "img-2"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.products.add(p)
	return p
}

func cartEntryFor(p *domain.Product, qty int) CartLineItem {
	return CartLineItem{
		ProductID: p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
		Images:    p.Images,
		UnitPrice: p.Price,
		Quantity:  qty,
	}
}

func shippingAddr() domain.ShippingAddress {
	return domain.ShippingAddress{
		Address:    "12 Market Lane",
		City:       "Ranchi",
		PostalCode: "834001",
		Country:    "India",
	}
}

func TestPlaceOrderSnapshotsCartVerbatim(t *testing.T) {
	f := newFixture(t)
	seller := uuid.New()
	p1 := f.addProduct(seller, "Clay Pot", "10.00", 5)
	p2 := f.addProduct(seller, "Woven Basket", "24.50", 3)

	// The cart lies about names and prices; the order must record the lie,
	// not the catalog truth
	cart := []CartLineItem{
		{
			ProductID: p1.ID,
			SellerID:  seller,
			Name:      "Totally Different Name",
			Images:    []string{"first.png", "second.png"},
			UnitPrice: decimal.RequireFromString("1.23"),
			Quantity:  2,
		},
		{
			ProductID: p2.ID,
			SellerID:  seller,
			Name:      p2.Name,
			Images:    p2.Images,
			UnitPrice: p2.Price,
			Quantity:  1,
		},
	}

	order, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, cart, shippingAddr(), decimal.RequireFromString("26.96"), "pi_test_123")
	require.NoError(t, err)
	require.Len(t, order.Items, len(cart))

	for i, item := range order.Items {
		assert.Equal(t, cart[i].ProductID, item.ProductID)
		assert.Equal(t, cart[i].SellerID, item.SellerID)
		assert.Equal(t, cart[i].Name, item.Name)
		assert.Equal(t, cart[i].Images[0], item.Image, "only the first image is snapshotted")
		assert.True(t, cart[i].UnitPrice.Equal(item.UnitPrice))
		assert.Equal(t, cart[i].Quantity, item.Quantity)
	}

	assert.True(t, order.Paid)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, "pi_test_123", order.PaymentResult.ID)
	assert.Equal(t, "succeeded", order.PaymentResult.Status)
	assert.Equal(t, f.buyer.Email, order.PaymentResult.Email)
	assert.True(t, decimal.RequireFromString("26.96").Equal(order.TotalPrice), "total is recorded as supplied, not recomputed")
}

func TestPlaceOrderEmptyCartFailsWithoutMutation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, nil, shippingAddr(), decimal.Zero, "pi_x")
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.Zero(t, f.products.incrementCalls, "no stock mutation on empty cart")
	assert.Zero(t, f.orders.insertCalls, "no order write on empty cart")
}

func TestPlaceOrderIncompleteAddressRejected(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Clay Pot", "10.00", 5)

	addr := shippingAddr()
	addr.PostalCode = ""

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 1)}, addr, p.Price, "pi_x")
	assert.ErrorIs(t, err, ErrIncompleteAddress)
	assert.Zero(t, f.products.incrementCalls)
}

func TestPlaceOrderDecrementsStock(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Clay Pot", "10.00", 5)

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 2)}, shippingAddr(), decimal.RequireFromString("20.00"), "pi_x")
	require.NoError(t, err)

	assert.Equal(t, 3, f.products.stockOf(p.ID))
}

func TestPlaceOrderStockMayGoNegative(t *testing.T) {
	f := newFixture(t)
	seller := uuid.New()
	p1 := f.addProduct(seller, "In Stock", "10.00", 3)
	p2 := f.addProduct(seller, "Out Of Stock", "20.00", 0)

	// Stock is not precondition-checked, so ordering the out-of-stock item
	// succeeds and drives its count negative
	cart := []CartLineItem{cartEntryFor(p1, 1), cartEntryFor(p2, 1)}
	order, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, cart, shippingAddr(), decimal.RequireFromString("30.00"), "pi_x")
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 2, f.products.stockOf(p1.ID))
	assert.Equal(t, -1, f.products.stockOf(p2.ID))
}

func TestPlaceOrderConcurrentLastUnitRace(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Last One", "99.00", 1)

	second := &domain.User{ID: uuid.New(), Name: "Second Buyer", Email: "second@example.com", Role: domain.RoleBuyer}
	f.users.add(second)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	buyers := []uuid.UUID{f.buyer.ID, second.ID}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.PlaceOrder(
				context.Background(),
				buyers[i],
				[]CartLineItem{cartEntryFor(p, 1)},
				shippingAddr(),
				decimal.RequireFromString("99.00"),
				"pi_race",
			)
		}(i)
	}
	wg.Wait()

	// There is no lock around the decrement-then-insert sequence: both
	// placements succeed and the final stock is negative
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, -1, f.products.stockOf(p.ID))
	assert.Equal(t, 2, f.orders.insertCalls)
}

func TestPlaceOrderInsertFailureLeavesDecrementsApplied(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Clay Pot", "10.00", 5)
	f.orders.insertErr = errors.New("order store unavailable")

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 2)}, shippingAddr(), decimal.RequireFromString("20.00"), "pi_x")
	require.Error(t, err)

	// The decrement is not compensated when the insert fails afterwards
	assert.Equal(t, 3, f.products.stockOf(p.ID))
}

func TestPlaceOrderUnknownBuyerRejected(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Clay Pot", "10.00", 5)

	_, err := f.service.PlaceOrder(context.Background(), uuid.New(), []CartLineItem{cartEntryFor(p, 1)}, shippingAddr(), p.Price, "pi_x")
	require.Error(t, err)
	assert.Zero(t, f.products.incrementCalls, "buyer is resolved before any mutation")
}

func TestPlaceOrderUnknownProductIsSkippedSilently(t *testing.T) {
	f := newFixture(t)

	cart := []CartLineItem{{
		ProductID: uuid.New(), // not in the catalog
		SellerID:  uuid.New(),
		Name:      "Ghost Product",
		Images:    []string{"ghost.png"},
		UnitPrice: decimal.RequireFromString("5.00"),
		Quantity:  1,
	}}

	order, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, cart, shippingAddr(), decimal.RequireFromString("5.00"), "pi_x")
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
}

func TestListOrdersForSellerFiltersAndSubtotals(t *testing.T) {
	f := newFixture(t)
	sellerX := uuid.New()
	sellerY := uuid.New()
	p1 := f.addProduct(sellerX, "X Pot", "10.00", 10)
	p2 := f.addProduct(sellerY, "Y Basket", "20.00", 10)

	cart := []CartLineItem{cartEntryFor(p1, 2), cartEntryFor(p2, 1)}
	order, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, cart, shippingAddr(), decimal.RequireFromString("40.00"), "pi_x")
	require.NoError(t, err)

	views, err := f.service.ListOrdersForSeller(context.Background(), sellerX)
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, order.ID, view.OrderID)
	assert.Equal(t, f.buyer.Name, view.BuyerName)
	assert.Equal(t, f.buyer.Email, view.BuyerEmail)
	require.Len(t, view.Items, 1, "only seller X's line survives the filter")
	assert.Equal(t, p1.ID, view.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("20.00").Equal(view.SellerSubtotal),
		"subtotal covers only seller X's items")

	for _, item := range view.Items {
		assert.Equal(t, sellerX, item.SellerID)
	}
}

func TestListOrdersForSellerSortedNewestFirst(t *testing.T) {
	f := newFixture(t)
	seller := uuid.New()
	p := f.addProduct(seller, "Pot", "10.00", 100)

	for i := 0; i < 3; i++ {
		_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 1)}, shippingAddr(), p.Price, "pi_x")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	views, err := f.service.ListOrdersForSeller(context.Background(), seller)
	require.NoError(t, err)
	require.Len(t, views, 3)

	for i := 1; i < len(views); i++ {
		assert.False(t, views[i].CreatedAt.After(views[i-1].CreatedAt), "orders must be newest first")
	}
}

func TestListOrdersForSellerIdempotent(t *testing.T) {
	f := newFixture(t)
	seller := uuid.New()
	p := f.addProduct(seller, "Pot", "10.00", 100)

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 3)}, shippingAddr(), decimal.RequireFromString("30.00"), "pi_x")
	require.NoError(t, err)

	first, err := f.service.ListOrdersForSeller(context.Background(), seller)
	require.NoError(t, err)
	second, err := f.service.ListOrdersForSeller(context.Background(), seller)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListOrdersForSellerEmptyCatalog(t *testing.T) {
	f := newFixture(t)

	views, err := f.service.ListOrdersForSeller(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, views, "no listings means an empty, non-error view")
}

func TestListOrdersForSellerOwnershipReevaluatedAtQueryTime(t *testing.T) {
	f := newFixture(t)
	seller := uuid.New()
	p := f.addProduct(seller, "Pot", "10.00", 10)

	_, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 1)}, shippingAddr(), p.Price, "pi_x")
	require.NoError(t, err)

	// Reassign the product to another seller after the purchase: the order
	// silently leaves the original seller's view
	p.SellerID = uuid.New()

	views, err := f.service.ListOrdersForSeller(context.Background(), seller)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListOrdersForBuyer(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(uuid.New(), "Pot", "10.00", 10)

	placed, err := f.service.PlaceOrder(context.Background(), f.buyer.ID, []CartLineItem{cartEntryFor(p, 1)}, shippingAddr(), p.Price, "pi_x")
	require.NoError(t, err)

	orders, err := f.service.ListOrdersForBuyer(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.ID, orders[0].ID)

	other, err := f.service.ListOrdersForBuyer(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
