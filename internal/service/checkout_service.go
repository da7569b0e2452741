package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/repository"
)

type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// CheckoutService turns a customer's cart into an order and a hosted
// checkout session at the payment gateway.
type CheckoutService struct {
	repo    repository.Repository
	gateway gateway.Gateway
	inv     invalidator
	cfg     CheckoutConfig
	log     *slog.Logger
}

func NewCheckoutService(repo repository.Repository, gw gateway.Gateway, c cache.Cache, cfg CheckoutConfig, log *slog.Logger) *CheckoutService {
	return &CheckoutService{
		repo:    repo,
		gateway: gw,
		inv:     invalidator{cache: c, log: log},
		cfg:     cfg,
		log:     log,
	}
}

// CreateCheckoutSession snapshots the cart into an ORDER_CREATED order and
// returns the gateway URL the customer is redirected to. Calling it again with
// an unchanged cart reuses the open order, so the gateway sees the same
// idempotency key.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, customerID int64) (string, error) {
	log := logger.FromContext(ctx, s.log).With("customer_id", customerID)

	if err := s.ensureCart(ctx, customerID); err != nil {
		return "", err
	}

	var (
		order  *domain.Order
		req    gateway.CheckoutRequest
		reused bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		cart, err := tx.LockCartByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		cart.Recalculate()

		eligible := cart.EligibleItems()
		if len(eligible) == 0 {
			return domain.InvalidState("cart %d has no items eligible for checkout", cart.ID)
		}
		req = s.draftRequest(eligible)
		fingerprint := req.Fingerprint()
		total := cart.OrderTotal()

		open, err := tx.FindOpenOrder(ctx, customerID)
		switch {
		case err == nil && open.CheckoutFingerprint == fingerprint &&
			open.SameItems(cart.Items) && open.Total.Equal(total):
			order, reused = open, true
			return nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}

		address := &domain.Address{}
		if err := tx.CreateAddress(ctx, address); err != nil {
			return err
		}

		order = &domain.Order{
			CustomerID: customerID,
			AddressID:  address.ID,
			Total:      total,
			Status:     domain.OrderStatusCreated,
			Items:      make([]domain.OrderItem, 0, len(cart.Items)),

			CheckoutFingerprint: fingerprint,
		}
		for _, item := range cart.Items {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return "", err
	}

	log = log.With("order_id", order.ID)
	if reused {
		log.Info("reusing open order for checkout")
	} else {
		s.inv.orderChanged(order.ID, customerID)
		log.Info("order created for checkout", "total", order.Total.StringFixed(2))
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, withOrder(req, order))
	if err != nil {
		log.Error("checkout session creation failed", "error", err)
		if !errors.Is(err, domain.ErrGateway) {
			err = domain.GatewayError(err)
		}
		return "", err
	}

	log.Info("checkout session created", "session_id", session.ID)
	return session.URL, nil
}

// ensureCart creates the customer's cart in its own transaction so that it
// survives a rejected checkout.
func (s *CheckoutService) ensureCart(ctx context.Context, customerID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		_, err := tx.CreateCart(ctx, customerID)
		return err
	})
}

// draftRequest builds the order-independent part of the gateway request.
func (s *CheckoutService) draftRequest(eligible []domain.CartItem) gateway.CheckoutRequest {
	req := gateway.CheckoutRequest{
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		LineItems:  make([]gateway.LineItem, 0, len(eligible)),
	}
	for _, item := range eligible {
		req.LineItems = append(req.LineItems, gateway.LineItem{
			Name:       item.Product.Name,
			UnitAmount: item.UnitAmount(),
			Quantity:   int64(item.Quantity),
		})
	}
	return req
}

// withOrder ties a drafted request to the order it pays for.
func withOrder(req gateway.CheckoutRequest, order *domain.Order) gateway.CheckoutRequest {
	ref := order.ClientReferenceID()
	req.ClientReferenceID = ref
	req.IdempotencyKey = ref
	req.Metadata = map[string]string{
		"order_id":    strconv.FormatInt(order.ID, 10),
		"customer_id": strconv.FormatInt(order.CustomerID, 10),
	}
	return req
}
