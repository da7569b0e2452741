package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, customerID int64) (string, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
		log:      log,
	}
}

type CheckoutRequestDTO struct {
	CustomerID int64 `json:"customerId" validate:"required,gt=0"`
}

type CheckoutResponseDTO struct {
	RedirectURL string `json:"redirectUrl"`
}

// POST /checkout
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	url, err := h.checkout.CreateCheckoutSession(ctx, req.CustomerID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{RedirectURL: url})
}
