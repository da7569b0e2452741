package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// MemoryRepository implements Repository in process memory. Transactions are
// serialized by a single mutex and rolled back by restoring a copy of the state.
// Order totals are kept at domain.TotalScale, like the orders.total column.
type MemoryRepository struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	seq           int64
	customers     map[int64]domain.Customer
	products      map[int64]domain.Product
	addresses     map[int64]domain.Address
	carts         map[int64]domain.ShoppingCart
	cartItems     map[int64]domain.CartItem
	orders        map[int64]domain.Order
	orderItems    map[int64]domain.OrderItem
	webhookEvents map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: memState{
			customers:     make(map[int64]domain.Customer),
			products:      make(map[int64]domain.Product),
			addresses:     make(map[int64]domain.Address),
			carts:         make(map[int64]domain.ShoppingCart),
			cartItems:     make(map[int64]domain.CartItem),
			orders:        make(map[int64]domain.Order),
			orderItems:    make(map[int64]domain.OrderItem),
			webhookEvents: make(map[string]string),
		},
	}
}

func (s memState) clone() memState {
	return memState{
		seq:           s.seq,
		customers:     cloneMap(s.customers),
		products:      cloneMap(s.products),
		addresses:     cloneMap(s.addresses),
		carts:         cloneMap(s.carts),
		cartItems:     cloneMap(s.cartItems),
		orders:        cloneMap(s.orders),
		orderItems:    cloneMap(s.orderItems),
		webhookEvents: cloneMap(s.webhookEvents),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

// SeedCustomer stores a customer and returns it with its id.
func (r *MemoryRepository) SeedCustomer(c domain.Customer) domain.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.state.nextID()
	r.state.customers[c.ID] = c
	return c
}

// SeedProduct stores a product and returns it with its id.
func (r *MemoryRepository) SeedProduct(p domain.Product) domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.state.nextID()
	r.state.products[p.ID] = p
	return p
}

// Seed is the catalog a memory store starts with. Ids in it are ignored and
// assigned in file order, customers first.
type Seed struct {
	Customers []domain.Customer `json:"customers"`
	Products  []domain.Product  `json:"products"`
}

// LoadSeed stores every customer and product of the JSON seed read from src.
func (r *MemoryRepository) LoadSeed(src io.Reader) (Seed, error) {
	var seed Seed
	if err := json.NewDecoder(src).Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("failed to decode seed: %w", err)
	}
	for i, c := range seed.Customers {
		seed.Customers[i] = r.SeedCustomer(c)
	}
	for i, p := range seed.Products {
		seed.Products[i] = r.SeedProduct(p)
	}
	return seed, nil
}

// SetStock changes the stock of a seeded product.
func (r *MemoryRepository) SetStock(productID int64, stock int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.state.products[productID]
	p.Stock = stock
	r.state.products[productID] = p
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := r.state.clone()
	if err := fn(ctx, &memTx{s: &r.state}); err != nil {
		r.state = backup
		return err
	}
	return nil
}

func (r *MemoryRepository) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.customer(id)
}

func (r *MemoryRepository) GetCart(_ context.Context, cartID int64) (*domain.ShoppingCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.cart(cartID)
}

func (r *MemoryRepository) GetCartByCustomer(_ context.Context, customerID int64) (*domain.ShoppingCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.cartByCustomer(customerID)
}

func (r *MemoryRepository) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.order(id)
}

func (r *MemoryRepository) GetAddress(_ context.Context, id int64) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.state.addresses[id]
	if !ok {
		return nil, domain.NotFound("address", id)
	}
	return &a, nil
}

func (r *MemoryRepository) ListOrders(_ context.Context, page domain.PageRequest) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.listOrders(func(domain.Order) bool { return true }, page)
}

func (r *MemoryRepository) ListCustomerOrders(_ context.Context, customerID int64, page domain.PageRequest) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.listOrders(func(o domain.Order) bool { return o.CustomerID == customerID }, page)
}

func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func (s *memState) customer(id int64) (*domain.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, domain.NotFound("customer", id)
	}
	return &c, nil
}

func (s *memState) cart(id int64) (*domain.ShoppingCart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, domain.NotFound("cart", id)
	}
	cart.Items = []domain.CartItem{}
	for _, item := range s.cartItems {
		if item.CartID == id {
			item.Product = s.products[item.ProductID].Snapshot()
			cart.Items = append(cart.Items, item)
		}
	}
	slices.SortFunc(cart.Items, func(a, b domain.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return &cart, nil
}

func (s *memState) cartByCustomer(customerID int64) (*domain.ShoppingCart, error) {
	for id, cart := range s.carts {
		if cart.CustomerID == customerID {
			return s.cart(id)
		}
	}
	return nil, domain.NotFound("cart for customer", customerID)
}

func (s *memState) order(id int64) (*domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, domain.NotFound("order", id)
	}
	order.Items = []domain.OrderItem{}
	for _, item := range s.orderItems {
		if item.OrderID == id {
			order.Items = append(order.Items, item)
		}
	}
	slices.SortFunc(order.Items, func(a, b domain.OrderItem) int { return cmp.Compare(a.ID, b.ID) })
	return &order, nil
}

func (s *memState) listOrders(match func(domain.Order) bool, page domain.PageRequest) ([]*domain.Order, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	matched := []*domain.Order{}
	for id, o := range s.orders {
		if match(o) {
			order, _ := s.order(id)
			matched = append(matched, order)
		}
	}

	slices.SortFunc(matched, func(a, b *domain.Order) int {
		var c int
		switch page.SortColumn() {
		case "total":
			c = a.Total.Cmp(b.Total)
		case "status":
			c = cmp.Compare(a.Status, b.Status)
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if page.SortOrder == "desc" {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
			if page.SortColumn() == "id" && page.SortOrder == "desc" {
				c = -c
			}
		}
		return c
	})

	start := min(page.Offset(), len(matched))
	end := min(start+page.Size, len(matched))
	return matched[start:end], nil
}

type memTx struct {
	s *memState
}

func (t *memTx) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	return t.s.customer(id)
}

func (t *memTx) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, domain.NotFound("product", id)
	}
	return &p, nil
}

func (t *memTx) CreateCart(_ context.Context, customerID int64) (*domain.ShoppingCart, error) {
	if _, ok := t.s.customers[customerID]; !ok {
		return nil, domain.NotFound("customer", customerID)
	}
	if cart, err := t.s.cartByCustomer(customerID); err == nil {
		return cart, nil
	}
	now := time.Now()
	cart := domain.ShoppingCart{
		ID:         t.s.nextID(),
		CustomerID: customerID,
		Total:      decimal.Zero,
		Discount:   decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.s.carts[cart.ID] = cart
	return t.s.cart(cart.ID)
}

func (t *memTx) LockCart(_ context.Context, cartID int64) (*domain.ShoppingCart, error) {
	return t.s.cart(cartID)
}

func (t *memTx) LockCartByCustomer(_ context.Context, customerID int64) (*domain.ShoppingCart, error) {
	return t.s.cartByCustomer(customerID)
}

func (t *memTx) UpsertCartItem(_ context.Context, cartID, productID int64, quantity int) error {
	if _, ok := t.s.carts[cartID]; !ok {
		return domain.NotFound("cart", cartID)
	}
	if _, ok := t.s.products[productID]; !ok {
		return domain.NotFound("product", productID)
	}
	for id, item := range t.s.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity = quantity
			t.s.cartItems[id] = item
			return nil
		}
	}
	id := t.s.nextID()
	t.s.cartItems[id] = domain.CartItem{ID: id, CartID: cartID, ProductID: productID, Quantity: quantity}
	return nil
}

func (t *memTx) UpdateCartItem(_ context.Context, cartID, itemID int64, quantity int) error {
	item, ok := t.s.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return domain.NotFound("cart item", itemID)
	}
	item.Quantity = quantity
	t.s.cartItems[itemID] = item
	return nil
}

func (t *memTx) DeleteCartItem(_ context.Context, cartID, itemID int64) error {
	item, ok := t.s.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return domain.NotFound("cart item", itemID)
	}
	delete(t.s.cartItems, itemID)
	return nil
}

func (t *memTx) DeleteCartItems(_ context.Context, cartID int64) error {
	for id, item := range t.s.cartItems {
		if item.CartID == cartID {
			delete(t.s.cartItems, id)
		}
	}
	return nil
}

func (t *memTx) SaveCartTotals(_ context.Context, cart *domain.ShoppingCart) error {
	stored, ok := t.s.carts[cart.ID]
	if !ok {
		return domain.NotFound("cart", cart.ID)
	}
	stored.Total = cart.Total
	stored.Discount = cart.Discount
	stored.UpdatedAt = time.Now()
	cart.UpdatedAt = stored.UpdatedAt
	t.s.carts[cart.ID] = stored
	return nil
}

func (t *memTx) CreateAddress(_ context.Context, a *domain.Address) error {
	a.ID = t.s.nextID()
	t.s.addresses[a.ID] = *a
	return nil
}

func (t *memTx) UpdateAddress(_ context.Context, a *domain.Address) error {
	if _, ok := t.s.addresses[a.ID]; !ok {
		return domain.NotFound("address", a.ID)
	}
	t.s.addresses[a.ID] = *a
	return nil
}

func (t *memTx) CreateOrder(_ context.Context, order *domain.Order) error {
	if _, ok := t.s.customers[order.CustomerID]; !ok {
		return domain.NotFound("customer", order.CustomerID)
	}
	now := time.Now()
	order.ID = t.s.nextID()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	stored.Items = nil
	stored.Total = order.Total.Round(domain.TotalScale)
	t.s.orders[order.ID] = stored

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = t.s.nextID()
		item.OrderID = order.ID
		t.s.orderItems[item.ID] = *item
	}
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (*domain.Order, error) {
	return t.s.order(id)
}

func (t *memTx) UpdateOrder(_ context.Context, order *domain.Order) error {
	stored, ok := t.s.orders[order.ID]
	if !ok {
		return domain.NotFound("order", order.ID)
	}
	stored.Total = order.Total.Round(domain.TotalScale)
	stored.Status = order.Status
	stored.AddressID = order.AddressID
	stored.UpdatedAt = time.Now()
	order.UpdatedAt = stored.UpdatedAt
	t.s.orders[order.ID] = stored
	return nil
}

func (t *memTx) FindOpenOrder(_ context.Context, customerID int64) (*domain.Order, error) {
	var latest int64
	for id, o := range t.s.orders {
		if o.CustomerID == customerID && o.Status == domain.OrderStatusCreated && id > latest {
			latest = id
		}
	}
	if latest == 0 {
		return nil, domain.NotFound("open order for customer", customerID)
	}
	return t.s.order(latest)
}

func (t *memTx) RecordWebhookEvent(_ context.Context, eventID, eventType string) (bool, error) {
	if _, seen := t.s.webhookEvents[eventID]; seen {
		return false, nil
	}
	t.s.webhookEvents[eventID] = eventType
	return true, nil
}
