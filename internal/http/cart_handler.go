package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	CreateCart(ctx context.Context, customerID int64) (*domain.ShoppingCart, error)
	GetCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error)
	GetCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error)
	AddOrUpdateItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.ShoppingCart, error)
	UpdateItem(ctx context.Context, cartID, itemID int64, quantity int) (*domain.ShoppingCart, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) (*domain.ShoppingCart, error)
	RemoveAll(ctx context.Context, cartID int64) (*domain.ShoppingCart, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity" validate:"required,gte=0,lte=999"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

// POST /cart/{id} with a customer id
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cart, err := h.carts.CreateCart(ctx, customerID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// GET /cart/{id} with a customer id
func (h *CartHandler) GetCustomerCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cart, err := h.carts.GetCartByCustomer(ctx, customerID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// GET /cart/{id}/items with a cart id
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, cartID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /cart/{id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddItemRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cart, err := h.carts.AddOrUpdateItem(ctx, cartID, req.ProductID, *req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// PUT /cart/{id}/items/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateItem(ctx, cartID, itemID, *req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /cart/{id}/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, cartID, itemID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /cart/{id}/items
func (h *CartHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveAll(ctx, cartID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// pathID parses a positive integer URL parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Errors:  map[string]string{name: "must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}
