package http

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type CartItemDTO struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	DiscountPct string `json:"discountPct"`
	Eligible    bool   `json:"eligible"`
}

type CartResponseDTO struct {
	ID         int64         `json:"id"`
	CustomerID int64         `json:"customerId"`
	Items      []CartItemDTO `json:"items"`
	Total      string        `json:"total"`
	Discount   string        `json:"discount"`
	Payable    string        `json:"payable"`
}

type OrderItemDTO struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderResponseDTO carries ShippingAddress only on single order reads, once
// the gateway has reported it.
type OrderResponseDTO struct {
	ID              int64          `json:"id"`
	CustomerID      int64          `json:"customerId"`
	AddressID       int64          `json:"addressId"`
	ShippingAddress *AddressDTO    `json:"shippingAddress,omitempty"`
	Total           string         `json:"total"`
	Status          string         `json:"status"`
	Items           []OrderItemDTO `json:"items"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

func convertCart(c *domain.ShoppingCart) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Product.Price.StringFixed(2),
			DiscountPct: item.Product.DiscountPct.String(),
			Eligible:    item.Eligible(),
		})
	}
	return CartResponseDTO{
		ID:         c.ID,
		CustomerID: c.CustomerID,
		Items:      items,
		Total:      c.Total.StringFixed(2),
		Discount:   c.Discount.StringFixed(2),
		Payable:    c.Payable().StringFixed(2),
	}
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return OrderResponseDTO{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		AddressID:  o.AddressID,
		Total:      o.Total.String(),
		Status:     o.Status.String(),
		Items:      items,
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func convertAddress(a *domain.Address) *AddressDTO {
	return &AddressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func convertOrders(orders []*domain.Order) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	return dtos
}
