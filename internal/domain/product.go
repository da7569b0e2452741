package domain

import "github.com/shopspring/decimal"

// Product is owned by the catalog; this service only reads it.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Stock       int             `json:"stock"`
}

// ProductSnapshot is the product state captured when a cart is read.
type ProductSnapshot struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Stock       int             `json:"stock"`
}

func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:        p.Name,
		Price:       p.Price,
		DiscountPct: p.DiscountPct,
		Stock:       p.Stock,
	}
}

type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
