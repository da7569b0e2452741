package service

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CartService keeps cart totals consistent with the cart's items. Every
// mutation recomputes totals from the full item set under the cart row lock.
type CartService struct {
	repo  repository.Repository
	cache cache.Cache
	inv   invalidator
	log   *slog.Logger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.Repository, c cache.Cache, log *slog.Logger) *CartService {
	return &CartService{
		repo:  repo,
		cache: c,
		inv:   invalidator{cache: c, log: log},
		log:   log,
	}
}

// CreateCart returns the customer's cart, creating it if needed.
func (s *CartService) CreateCart(ctx context.Context, customerID int64) (*domain.ShoppingCart, error) {
	var cart *domain.ShoppingCart
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		cart, err = tx.CreateCart(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	cart.Recalculate()
	s.inv.evict(customerCartKey(customerID))
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error) {
	return readThrough(ctx, &s.sfg, s.cache, logger.FromContext(ctx, s.log), cartKey(cartID),
		func(ctx context.Context) (*domain.ShoppingCart, error) {
			cart, err := s.repo.GetCart(ctx, cartID)
			if err != nil {
				return nil, err
			}
			cart.Recalculate()
			return cart, nil
		})
}

func (s *CartService) GetCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error) {
	return readThrough(ctx, &s.sfg, s.cache, logger.FromContext(ctx, s.log), customerCartKey(customerID),
		func(ctx context.Context) (*domain.ShoppingCart, error) {
			cart, err := s.repo.GetCartByCustomer(ctx, customerID)
			if err != nil {
				return nil, err
			}
			cart.Recalculate()
			return cart, nil
		})
}

// AddOrUpdateItem sets the quantity of productID in the cart, adding the item
// if the cart does not hold it yet.
func (s *CartService) AddOrUpdateItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.ShoppingCart, error) {
	if quantity < 0 {
		return nil, domain.InvalidState("quantity must not be negative, got %d", quantity)
	}
	return s.mutate(ctx, cartID, func(ctx context.Context, tx repository.Tx, cart *domain.ShoppingCart) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		return tx.UpsertCartItem(ctx, cart.ID, productID, quantity)
	})
}

func (s *CartService) UpdateItem(ctx context.Context, cartID, itemID int64, quantity int) (*domain.ShoppingCart, error) {
	if quantity < 0 {
		return nil, domain.InvalidState("quantity must not be negative, got %d", quantity)
	}
	return s.mutate(ctx, cartID, func(ctx context.Context, tx repository.Tx, cart *domain.ShoppingCart) error {
		return tx.UpdateCartItem(ctx, cart.ID, itemID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID int64) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, tx repository.Tx, cart *domain.ShoppingCart) error {
		return tx.DeleteCartItem(ctx, cart.ID, itemID)
	})
}

func (s *CartService) RemoveAll(ctx context.Context, cartID int64) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, tx repository.Tx, cart *domain.ShoppingCart) error {
		return tx.DeleteCartItems(ctx, cart.ID)
	})
}

// mutate locks the cart, applies change, reloads the items and stores totals
// recomputed from them.
func (s *CartService) mutate(ctx context.Context, cartID int64, change func(context.Context, repository.Tx, *domain.ShoppingCart) error) (*domain.ShoppingCart, error) {
	var cart *domain.ShoppingCart
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if err := change(ctx, tx, locked); err != nil {
			return err
		}

		cart, err = tx.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		cart.Recalculate()
		return tx.SaveCartTotals(ctx, cart)
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Debug("cart mutation failed", "cart_id", cartID, "error", err)
		return nil, err
	}

	s.inv.cartChanged(cart.ID, cart.CustomerID)
	return cart, nil
}
