package service

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo       *repository.MemoryRepository
	cache      *MockCache
	gateway    *MockGateway
	notifier   *MockNotifier
	carts      *CartService
	checkout   *CheckoutService
	reconciler *Reconciler
	orders     *OrderService
	customer   domain.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	c := NewMockCache()
	gw := &MockGateway{}
	notifier := &MockNotifier{}
	log := logger.Discard()

	return &fixture{
		repo:     repo,
		cache:    c,
		gateway:  gw,
		notifier: notifier,
		carts:    NewCartService(repo, c, log),
		checkout: NewCheckoutService(repo, gw, c, CheckoutConfig{
			SuccessURL: "https://shop.example.com/success",
			CancelURL:  "https://shop.example.com/cancel",
			Currency:   "usd",
		}, log),
		reconciler: NewReconciler(repo, notifier, c, log),
		orders:     NewOrderService(repo, c, log),
		customer:   repo.SeedCustomer(domain.Customer{Email: "ada@example.com", Name: "Ada"}),
	}
}

func (f *fixture) product(name, price, discountPct string, stock int) domain.Product {
	return f.repo.SeedProduct(domain.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		DiscountPct: decimal.RequireFromString(discountPct),
		Stock:       stock,
	})
}

// cart creates the fixture customer's cart holding quantities by product id.
func (f *fixture) cart(t *testing.T, quantities map[int64]int) *domain.ShoppingCart {
	t.Helper()
	ctx := context.Background()

	cart, err := f.carts.CreateCart(ctx, f.customer.ID)
	require.NoError(t, err)
	for productID, qty := range quantities {
		cart, err = f.carts.AddOrUpdateItem(ctx, cart.ID, productID, qty)
		require.NoError(t, err)
	}
	return cart
}

// checkoutOrder runs a checkout and returns the order it created.
func (f *fixture) checkoutOrder(t *testing.T) *domain.Order {
	t.Helper()
	ctx := context.Background()

	_, err := f.checkout.CreateCheckoutSession(ctx, f.customer.ID)
	require.NoError(t, err)

	orders, err := f.repo.ListCustomerOrders(ctx, f.customer.ID, domain.PageRequest{SortOrder: "desc"})
	require.NoError(t, err)
	require.NotEmpty(t, orders)
	return orders[0]
}

func (f *fixture) reload(t *testing.T, orderID int64) *domain.Order {
	t.Helper()
	order, err := f.repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	return order
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
