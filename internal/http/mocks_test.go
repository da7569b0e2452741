package http

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
)

// MockCartService implements CartService for testing
type MockCartService struct {
	Cart *domain.ShoppingCart
	Err  error

	GotCartID    int64
	GotProductID int64
	GotItemID    int64
	GotQuantity  int
}

func (m *MockCartService) CreateCart(_ context.Context, customerID int64) (*domain.ShoppingCart, error) {
	return m.Cart, m.Err
}

func (m *MockCartService) GetCart(_ context.Context, cartID int64) (*domain.ShoppingCart, error) {
	m.GotCartID = cartID
	return m.Cart, m.Err
}

func (m *MockCartService) GetCartByCustomer(_ context.Context, _ int64) (*domain.ShoppingCart, error) {
	return m.Cart, m.Err
}

func (m *MockCartService) AddOrUpdateItem(_ context.Context, cartID, productID int64, quantity int) (*domain.ShoppingCart, error) {
	m.GotCartID, m.GotProductID, m.GotQuantity = cartID, productID, quantity
	return m.Cart, m.Err
}

func (m *MockCartService) UpdateItem(_ context.Context, cartID, itemID int64, quantity int) (*domain.ShoppingCart, error) {
	m.GotCartID, m.GotItemID, m.GotQuantity = cartID, itemID, quantity
	return m.Cart, m.Err
}

func (m *MockCartService) RemoveItem(_ context.Context, cartID, itemID int64) (*domain.ShoppingCart, error) {
	m.GotCartID, m.GotItemID = cartID, itemID
	return m.Cart, m.Err
}

func (m *MockCartService) RemoveAll(_ context.Context, cartID int64) (*domain.ShoppingCart, error) {
	m.GotCartID = cartID
	return m.Cart, m.Err
}

// MockCheckoutService implements CheckoutService for testing
type MockCheckoutService struct {
	URL           string
	Err           error
	GotCustomerID int64
}

func (m *MockCheckoutService) CreateCheckoutSession(_ context.Context, customerID int64) (string, error) {
	m.GotCustomerID = customerID
	return m.URL, m.Err
}

// MockDispatcher implements Dispatcher for testing
type MockDispatcher struct {
	Err          error
	GotPayload   []byte
	GotSignature string
}

func (m *MockDispatcher) Dispatch(_ context.Context, payload []byte, signature string) error {
	m.GotPayload, m.GotSignature = payload, signature
	return m.Err
}

// MockOrderService implements OrderService for testing
type MockOrderService struct {
	Order      *domain.Order
	Orders     []*domain.Order
	Address    *domain.Address
	Err        error
	AddressErr error
	GotPage    domain.PageRequest
}

func (m *MockOrderService) GetOrder(_ context.Context, _ int64) (*domain.Order, error) {
	return m.Order, m.Err
}

func (m *MockOrderService) ShippingAddress(_ context.Context, _ *domain.Order) (*domain.Address, error) {
	return m.Address, m.AddressErr
}

func (m *MockOrderService) ListOrders(_ context.Context, page domain.PageRequest) ([]*domain.Order, error) {
	m.GotPage = page
	return m.Orders, m.Err
}

func (m *MockOrderService) ListCustomerOrders(_ context.Context, _ int64, page domain.PageRequest) ([]*domain.Order, error) {
	m.GotPage = page
	return m.Orders, m.Err
}
