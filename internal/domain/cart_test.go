package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(price, pct string, stock int) ProductSnapshot {
	return ProductSnapshot{
		Name:        "p",
		Price:       decimal.RequireFromString(price),
		DiscountPct: decimal.RequireFromString(pct),
		Stock:       stock,
	}
}

func TestRecalculate_Totals(t *testing.T) {
	cart := &ShoppingCart{
		Items: []CartItem{
			{ProductID: 1, Quantity: 2, Product: product("10.00", "10", 5)},
			{ProductID: 2, Quantity: 1, Product: product("4.50", "0", 5)},
		},
	}

	cart.Recalculate()

	assert.True(t, decimal.RequireFromString("24.50").Equal(cart.Total), cart.Total.String())
	assert.True(t, decimal.RequireFromString("2").Equal(cart.Discount), cart.Discount.String())
	assert.True(t, decimal.RequireFromString("22.50").Equal(cart.Payable()))
}

func TestOrderTotal_FitsStoredScale(t *testing.T) {
	cart := &ShoppingCart{
		Items: []CartItem{{ProductID: 1, Quantity: 1, Product: product("9.99", "12.5", 5)}},
	}

	cart.Recalculate()

	assert.True(t, decimal.RequireFromString("8.74125").Equal(cart.Payable()), cart.Payable().String())
	assert.True(t, decimal.RequireFromString("8.7413").Equal(cart.OrderTotal()), cart.OrderTotal().String())
}

func TestRecalculate_EmptyCart(t *testing.T) {
	cart := &ShoppingCart{Total: decimal.NewFromInt(9), Discount: decimal.NewFromInt(1)}
	cart.Recalculate()
	assert.True(t, cart.Total.IsZero())
	assert.True(t, cart.Discount.IsZero())
}

// Any sequence of add/update/remove leaves totals equal to a fresh sum.
func TestRecalculate_InvariantUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prices := []string{"0.99", "3.00", "12.49", "100.00"}
	pcts := []string{"0", "5", "12.5", "50"}

	cart := &ShoppingCart{}
	for step := 0; step < 500; step++ {
		productID := int64(rng.Intn(6) + 1)
		switch rng.Intn(3) {
		case 0, 1:
			qty := rng.Intn(5)
			snap := product(prices[productID%4], pcts[productID%4], 10)
			updated := false
			for i := range cart.Items {
				if cart.Items[i].ProductID == productID {
					cart.Items[i].Quantity = qty
					updated = true
				}
			}
			if !updated {
				cart.Items = append(cart.Items, CartItem{ProductID: productID, Quantity: qty, Product: snap})
			}
		case 2:
			kept := cart.Items[:0]
			for _, item := range cart.Items {
				if item.ProductID != productID {
					kept = append(kept, item)
				}
			}
			cart.Items = kept
		}
		cart.Recalculate()

		wantTotal, wantDiscount := decimal.Zero, decimal.Zero
		for _, item := range cart.Items {
			line := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			wantTotal = wantTotal.Add(line)
			wantDiscount = wantDiscount.Add(line.Mul(item.Product.DiscountPct).Div(decimal.NewFromInt(100)))
		}
		require.True(t, wantTotal.Equal(cart.Total), "step %d total", step)
		require.True(t, wantDiscount.Equal(cart.Discount), "step %d discount", step)
	}
}

func TestClear(t *testing.T) {
	cart := &ShoppingCart{Items: []CartItem{{ProductID: 1, Quantity: 1, Product: product("1", "0", 1)}}}
	cart.Recalculate()
	cart.Clear()
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
	assert.True(t, cart.Discount.IsZero())
}

func TestEligibleItems(t *testing.T) {
	cart := &ShoppingCart{
		Items: []CartItem{
			{ProductID: 1, Quantity: 4, Product: product("1", "0", 3)},
			{ProductID: 2, Quantity: 1, Product: product("1", "0", 3)},
			{ProductID: 3, Quantity: 0, Product: product("1", "0", 3)},
			{ProductID: 4, Quantity: 3, Product: product("1", "0", 3)},
		},
	}

	eligible := cart.EligibleItems()

	require.Len(t, eligible, 2)
	assert.Equal(t, int64(2), eligible[0].ProductID)
	assert.Equal(t, int64(4), eligible[1].ProductID)
}

func TestUnitAmount(t *testing.T) {
	tests := []struct {
		price, pct string
		want       int64
	}{
		{"10.00", "0", 1000},
		{"10.00", "15", 850},
		{"19.99", "10", 1799},
		{"0.05", "50", 3},
	}
	for _, tt := range tests {
		item := CartItem{Quantity: 1, Product: product(tt.price, tt.pct, 1)}
		assert.Equal(t, tt.want, item.UnitAmount(), "%s at %s%%", tt.price, tt.pct)
	}
}
