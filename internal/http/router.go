package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Orders   *OrdersHandler
}

// NewRouter wires every route behind the shared middleware stack.
func NewRouter(h Handlers, requestTimeout time.Duration, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/checkout", h.Checkout.CreateSession)
	r.Post("/webhook", h.Webhook.Receive)

	r.Route("/cart/{id}", func(r chi.Router) {
		r.Post("/", h.Cart.CreateCart)
		r.Get("/", h.Cart.GetCustomerCart)
		r.Get("/items", h.Cart.GetCart)
		r.Post("/items", h.Cart.AddItem)
		r.Delete("/items", h.Cart.RemoveAll)
		r.Put("/items/{itemId}", h.Cart.UpdateQuantity)
		r.Delete("/items/{itemId}", h.Cart.RemoveItem)
	})

	r.Get("/orders", h.Orders.ListOrders)
	r.Get("/orders/{id}", h.Orders.GetOrder)
	r.Get("/customers/{id}/orders", h.Orders.ListCustomerOrders)

	return otelhttp.NewHandler(r, "storefront-http")
}
