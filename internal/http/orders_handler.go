package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type OrderService interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ShippingAddress(ctx context.Context, order *domain.Order) (*domain.Address, error)
	ListOrders(ctx context.Context, page domain.PageRequest) ([]*domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID int64, page domain.PageRequest) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	log     *slog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		log:     log,
	}
}

// GET /orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	address, err := h.orders.ShippingAddress(ctx, order)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	dto := convertOrder(order)
	if address != nil {
		dto.ShippingAddress = convertAddress(address)
	}
	respondJSON(w, http.StatusOK, dto)
}

// GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, ok := pageRequest(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(ctx, page)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

// GET /customers/{id}/orders
func (h *OrdersHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, ok := pageRequest(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListCustomerOrders(ctx, customerID, page)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders))
}

func pageRequest(w http.ResponseWriter, r *http.Request) (domain.PageRequest, bool) {
	q := r.URL.Query()
	page := domain.PageRequest{
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	fields := map[string]string{}
	for name, dst := range map[string]*int{"page": &page.Page, "size": &page.Size} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be an integer"
			continue
		}
		*dst = n
	}
	if len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Message: "validation failed", Errors: fields})
		return page, false
	}
	return page, true
}
