package repository

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Tx is the set of store operations that run inside one transaction. Lock*
// methods take a row lock that is held until the transaction ends.
type Tx interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	CreateCart(ctx context.Context, customerID int64) (*domain.ShoppingCart, error)
	LockCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error)
	LockCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error)
	UpsertCartItem(ctx context.Context, cartID, productID int64, quantity int) error
	UpdateCartItem(ctx context.Context, cartID, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, cartID, itemID int64) error
	DeleteCartItems(ctx context.Context, cartID int64) error
	SaveCartTotals(ctx context.Context, cart *domain.ShoppingCart) error

	CreateAddress(ctx context.Context, address *domain.Address) error
	UpdateAddress(ctx context.Context, address *domain.Address) error

	CreateOrder(ctx context.Context, order *domain.Order) error
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	FindOpenOrder(ctx context.Context, customerID int64) (*domain.Order, error)

	// RecordWebhookEvent stores a processed gateway event id. It returns false
	// when the id was already recorded.
	RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error)
}

type Repository interface {
	// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
	// back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error)
	GetCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetAddress(ctx context.Context, id int64) (*domain.Address, error)
	ListOrders(ctx context.Context, page domain.PageRequest) ([]*domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID int64, page domain.PageRequest) ([]*domain.Order, error)

	Close() error
}
