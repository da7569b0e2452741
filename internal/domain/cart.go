package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type ShoppingCart struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Discount   decimal.Decimal `json:"discount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// Recalculate derives Total and Discount from the full item set. Totals are
// never patched incrementally.
func (c *ShoppingCart) Recalculate() {
	total := decimal.Zero
	discount := decimal.Zero
	for _, item := range c.Items {
		line := item.LineTotal()
		total = total.Add(line)
		discount = discount.Add(line.Mul(item.Product.DiscountPct).Div(hundred))
	}
	c.Total = total
	c.Discount = discount
}

// Clear empties the cart and resets its totals.
func (c *ShoppingCart) Clear() {
	c.Items = nil
	c.Total = decimal.Zero
	c.Discount = decimal.Zero
}

// Payable is the amount an order created from this cart is worth.
func (c *ShoppingCart) Payable() decimal.Decimal {
	return c.Total.Sub(c.Discount)
}

// OrderTotal is Payable at the scale order totals are stored with.
func (c *ShoppingCart) OrderTotal() decimal.Decimal {
	return c.Payable().Round(TotalScale)
}

func (c *ShoppingCart) ItemByProduct(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c *ShoppingCart) Item(itemID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// EligibleItems returns the items that can be sent to the gateway.
func (c *ShoppingCart) EligibleItems() []CartItem {
	eligible := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Eligible() {
			eligible = append(eligible, item)
		}
	}
	return eligible
}

// Eligible reports whether 0 < quantity <= stock.
func (i CartItem) Eligible() bool {
	return i.Quantity > 0 && i.Quantity <= i.Product.Stock
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UnitPrice is the discounted price of one unit.
func (i CartItem) UnitPrice() decimal.Decimal {
	return i.Product.Price.Mul(hundred.Sub(i.Product.DiscountPct)).Div(hundred)
}

// UnitAmount is UnitPrice in integer minor currency units, rounded half away from zero.
func (i CartItem) UnitAmount() int64 {
	return i.UnitPrice().Mul(hundred).Round(0).IntPart()
}
