package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresRepository struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &pgTx{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapPQError(err))
	}
	return nil
}

func (r *PostgresRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return getCustomer(ctx, r.db, id)
}

func (r *PostgresRepository) GetCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error) {
	return getCart(ctx, r.db, `WHERE id = $1`, cartID, "cart")
}

func (r *PostgresRepository) GetCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error) {
	return getCart(ctx, r.db, `WHERE customer_id = $1`, customerID, "cart for customer")
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.db, id, false)
}

func (r *PostgresRepository) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	query := `SELECT id, line1, line2, city, state, postal_code, country FROM addresses WHERE id = $1`

	var a domain.Address
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("address", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query address: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, page domain.PageRequest) ([]*domain.Order, error) {
	return listOrders(ctx, r.db, "", nil, page)
}

func (r *PostgresRepository) ListCustomerOrders(ctx context.Context, customerID int64, page domain.PageRequest) ([]*domain.Order, error) {
	return listOrders(ctx, r.db, "WHERE customer_id = $3", []any{customerID}, page)
}

type pgTx struct {
	q querier
}

func (t *pgTx) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return getCustomer(ctx, t.q, id)
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, name, price, discount_pct, stock FROM products WHERE id = $1`

	var p domain.Product
	err := t.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.DiscountPct, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (t *pgTx) CreateCart(ctx context.Context, customerID int64) (*domain.ShoppingCart, error) {
	query := `INSERT INTO shopping_carts (customer_id) VALUES ($1)
	          ON CONFLICT (customer_id) DO NOTHING`
	if _, err := t.q.ExecContext(ctx, query, customerID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, domain.NotFound("customer", customerID)
		}
		return nil, fmt.Errorf("insert cart: %w", mapPQError(err))
	}
	return t.LockCartByCustomer(ctx, customerID)
}

func (t *pgTx) LockCart(ctx context.Context, cartID int64) (*domain.ShoppingCart, error) {
	return getCart(ctx, t.q, `WHERE id = $1 FOR UPDATE`, cartID, "cart")
}

func (t *pgTx) LockCartByCustomer(ctx context.Context, customerID int64) (*domain.ShoppingCart, error) {
	return getCart(ctx, t.q, `WHERE customer_id = $1 FOR UPDATE`, customerID, "cart for customer")
}

func (t *pgTx) UpsertCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	query := `INSERT INTO shopping_cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
	          ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`
	if _, err := t.q.ExecContext(ctx, query, cartID, productID, quantity); err != nil {
		return fmt.Errorf("upsert cart item: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) UpdateCartItem(ctx context.Context, cartID, itemID int64, quantity int) error {
	query := `UPDATE shopping_cart_items SET quantity = $3 WHERE cart_id = $1 AND id = $2`
	res, err := t.q.ExecContext(ctx, query, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item: %w", mapPQError(err))
	}
	return requireAffected(res, "cart item", itemID)
}

func (t *pgTx) DeleteCartItem(ctx context.Context, cartID, itemID int64) error {
	query := `DELETE FROM shopping_cart_items WHERE cart_id = $1 AND id = $2`
	res, err := t.q.ExecContext(ctx, query, cartID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", mapPQError(err))
	}
	return requireAffected(res, "cart item", itemID)
}

func (t *pgTx) DeleteCartItems(ctx context.Context, cartID int64) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM shopping_cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) SaveCartTotals(ctx context.Context, cart *domain.ShoppingCart) error {
	query := `UPDATE shopping_carts SET total = $2, discount = $3, updated_at = NOW()
	          WHERE id = $1 RETURNING updated_at`
	err := t.q.QueryRowContext(ctx, query, cart.ID, cart.Total, cart.Discount).Scan(&cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("cart", cart.ID)
	}
	if err != nil {
		return fmt.Errorf("save cart totals: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) CreateAddress(ctx context.Context, a *domain.Address) error {
	query := `INSERT INTO addresses (line1, line2, city, state, postal_code, country)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := t.q.QueryRowContext(ctx, query, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert address: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) UpdateAddress(ctx context.Context, a *domain.Address) error {
	query := `UPDATE addresses SET line1 = $2, line2 = $3, city = $4, state = $5, postal_code = $6, country = $7
	          WHERE id = $1`
	res, err := t.q.ExecContext(ctx, query, a.ID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country)
	if err != nil {
		return fmt.Errorf("update address: %w", mapPQError(err))
	}
	return requireAffected(res, "address", a.ID)
}

func (t *pgTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (customer_id, address_id, total, status, checkout_fingerprint, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id, created_at, updated_at`
	err := t.q.QueryRowContext(ctx, query, order.CustomerID, order.AddressID, order.Total.Round(domain.TotalScale),
		order.Status, order.CheckoutFingerprint).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", mapPQError(err))
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3) RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := t.q.QueryRowContext(ctx, itemQuery, order.ID, item.ProductID, item.Quantity).Scan(&item.ID); err != nil {
			return fmt.Errorf("insert order item: %w", mapPQError(err))
		}
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, t.q, id, true)
}

func (t *pgTx) UpdateOrder(ctx context.Context, order *domain.Order) error {
	query := `UPDATE orders SET total = $2, status = $3, address_id = $4, updated_at = NOW()
	          WHERE id = $1 RETURNING updated_at`
	err := t.q.QueryRowContext(ctx, query, order.ID, order.Total, order.Status, order.AddressID).Scan(&order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("order", order.ID)
	}
	if err != nil {
		return fmt.Errorf("update order: %w", mapPQError(err))
	}
	return nil
}

func (t *pgTx) FindOpenOrder(ctx context.Context, customerID int64) (*domain.Order, error) {
	query := `SELECT id FROM orders WHERE customer_id = $1 AND status = $2 ORDER BY id DESC LIMIT 1`

	var id int64
	err := t.q.QueryRowContext(ctx, query, customerID, domain.OrderStatusCreated).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("open order for customer", customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query open order: %w", err)
	}
	return getOrder(ctx, t.q, id, true)
}

func (t *pgTx) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `INSERT INTO webhook_events (event_id, event_type) VALUES ($1, $2)
	          ON CONFLICT (event_id) DO NOTHING`
	res, err := t.q.ExecContext(ctx, query, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", mapPQError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return n == 1, nil
}

func getCustomer(ctx context.Context, q querier, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := q.QueryRowContext(ctx, `SELECT id, email, name FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Email, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func getCart(ctx context.Context, q querier, where string, arg int64, entity string) (*domain.ShoppingCart, error) {
	query := `SELECT id, customer_id, total, discount, created_at, updated_at FROM shopping_carts ` + where

	var cart domain.ShoppingCart
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&cart.ID, &cart.CustomerID, &cart.Total, &cart.Discount, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(entity, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", mapPQError(err))
	}

	itemsQuery := `SELECT i.id, i.cart_id, i.product_id, i.quantity, p.name, p.price, p.discount_pct, p.stock
	               FROM shopping_cart_items i JOIN products p ON p.id = i.product_id
	               WHERE i.cart_id = $1 ORDER BY i.id`
	rows, err := q.QueryContext(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.Product.Name,
			&item.Product.Price,
			&item.Product.DiscountPct,
			&item.Product.Stock,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &cart, nil
}

func getOrder(ctx context.Context, q querier, id int64, lock bool) (*domain.Order, error) {
	query := `SELECT id, customer_id, address_id, total, status, checkout_fingerprint, created_at, updated_at
	          FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var order domain.Order
	err := q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.AddressID,
		&order.Total,
		&order.Status,
		&order.CheckoutFingerprint,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", mapPQError(err))
	}

	items, err := orderItems(ctx, q, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return &order, nil
}

// listOrders pages through orders. filter may reference $3 onwards; $1 and $2
// are LIMIT and OFFSET.
func listOrders(ctx context.Context, q querier, filter string, filterArgs []any, page domain.PageRequest) ([]*domain.Order, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, customer_id, address_id, total, status, checkout_fingerprint, created_at, updated_at
		 FROM orders %s ORDER BY %s %s, id LIMIT $1 OFFSET $2`,
		filter, page.SortColumn(), page.SortOrder)

	args := append([]any{page.Size, page.Offset()}, filterArgs...)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	ids := []int64{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.AddressID,
			&order.Total,
			&order.Status,
			&order.CheckoutFingerprint,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	items, err := orderItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
		if order.Items == nil {
			order.Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func orderItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	result := make(map[int64][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	query := `SELECT id, order_id, product_id, quantity FROM order_items WHERE order_id = ANY($1) ORDER BY id`
	rows, err := q.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

// mapPQError turns serialization failures, deadlocks and unique violations
// into domain.ErrConflictOnWrite.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "40001", "40P01", "23505":
		return fmt.Errorf("%w: %w", domain.ErrConflictOnWrite, err)
	}
	return err
}
