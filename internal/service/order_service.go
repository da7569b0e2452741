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

// OrderService serves cached order reads.
type OrderService struct {
	repo  repository.Repository
	cache cache.Cache
	log   *slog.Logger
	sfg   singleflight.Group
}

func NewOrderService(repo repository.Repository, c cache.Cache, log *slog.Logger) *OrderService {
	return &OrderService{repo: repo, cache: c, log: log}
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return readThrough(ctx, &s.sfg, s.cache, logger.FromContext(ctx, s.log), orderKey(id),
		func(ctx context.Context) (*domain.Order, error) {
			return s.repo.GetOrder(ctx, id)
		})
}

// ShippingAddress returns the address the gateway collected for order, or nil
// while the order still carries its placeholder.
func (s *OrderService) ShippingAddress(ctx context.Context, order *domain.Order) (*domain.Address, error) {
	address, err := s.repo.GetAddress(ctx, order.AddressID)
	if err != nil {
		return nil, err
	}
	if address.IsPlaceholder() {
		return nil, nil
	}
	return address, nil
}

func (s *OrderService) ListOrders(ctx context.Context, page domain.PageRequest) ([]*domain.Order, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	key := cache.ListKey(ordersListing, page.Page, page.Size, page.SortBy, page.SortOrder)
	return readThrough(ctx, &s.sfg, s.cache, logger.FromContext(ctx, s.log), key,
		func(ctx context.Context) ([]*domain.Order, error) {
			return s.repo.ListOrders(ctx, page)
		})
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64, page domain.PageRequest) ([]*domain.Order, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	key := cache.ListKey(customerOrdersListing(customerID), page.Page, page.Size, page.SortBy, page.SortOrder)
	return readThrough(ctx, &s.sfg, s.cache, logger.FromContext(ctx, s.log), key,
		func(ctx context.Context) ([]*domain.Order, error) {
			if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
				return nil, err
			}
			return s.repo.ListCustomerOrders(ctx, customerID, page)
		})
}
