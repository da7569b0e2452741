package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "ORDER_CREATED"
	OrderStatusPlaced  OrderStatus = "ORDER_PLACED"
	OrderStatusExpired OrderStatus = "ORDER_EXPIRED"
	OrderStatusFailed  OrderStatus = "ORDER_FAILED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPlaced || s == OrderStatusExpired || s == OrderStatusFailed
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether from -> to is a forward transition.
func CanTransitionTo(from, to OrderStatus) bool {
	return from == OrderStatusCreated && to.IsTerminal()
}

// TotalScale is the number of decimal places kept for a stored order total.
const TotalScale = 4

// Order is frozen once it leaves ORDER_CREATED, apart from the address the
// gateway reports on completion. CheckoutFingerprint identifies the gateway
// request the order was submitted with; an open order is only reused for an
// identical request.
type Order struct {
	ID                  int64           `json:"id"`
	CustomerID          int64           `json:"customer_id"`
	AddressID           int64           `json:"address_id"`
	Total               decimal.Decimal `json:"total"`
	Status              OrderStatus     `json:"status"`
	Items               []OrderItem     `json:"items"`
	CheckoutFingerprint string          `json:"checkout_fingerprint"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// OrderItem is copied from a cart item when the checkout session is built.
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ClientReferenceID links a gateway session to the order. It doubles as the
// idempotency key for session creation.
func (o *Order) ClientReferenceID() string {
	return ClientReferenceID(o.CustomerID, o.ID)
}

func ClientReferenceID(customerID, orderID int64) string {
	return fmt.Sprintf("CUST%d_%d", customerID, orderID)
}

// RoundTotal rounds the total to whole cents.
func (o *Order) RoundTotal() {
	o.Total = o.Total.Round(2)
}

// SameItems reports whether the order was built from exactly these cart items.
func (o *Order) SameItems(items []CartItem) bool {
	if len(o.Items) != len(items) {
		return false
	}
	want := make(map[int64]int, len(items))
	for _, item := range items {
		want[item.ProductID] += item.Quantity
	}
	for _, item := range o.Items {
		if want[item.ProductID] != item.Quantity {
			return false
		}
		delete(want, item.ProductID)
	}
	return len(want) == 0
}
