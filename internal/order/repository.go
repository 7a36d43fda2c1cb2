package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
)

// Repository reads return (nil, nil) when the order does not exist.
type Repository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f Filter, p pagination.Page) ([]Order, int, error)
	All(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID string, status Status, paymentRef string) error
	Delete(ctx context.Context, orderID string) error
	FindIdempotency(ctx context.Context, key string) (orderID, requestHash string, found bool, err error)
	SaveIdempotencyWithTx(ctx context.Context, tx pgx.Tx, key, orderID, requestHash string) error
}

type repo struct {
	pool db.Pool
}

func NewRepository(pool db.Pool) Repository {
	return &repo{pool: pool}
}

const orderColumns = `id, number, user_id, email, status, total, first_name, last_name, phone,
	address, city, postal_code, country, payment_ref, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.Email, &o.Status, &o.Total,
		&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Phone,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.PaymentRef, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Shipping.Email = o.Email
	return o, err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *repo) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, number, user_id, email, status, total, first_name, last_name, phone,
			address, city, postal_code, country, payment_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.Number, o.UserID, o.Email, o.Status, o.Total,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.Phone,
		o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
		o.PaymentRef, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, package_id, name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), o.ID, it.ProductID, it.PackageID, it.Name, it.Quantity, it.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.get(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

// GetForUpdateWithTx locks the order row for a status change.
func (r *repo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID string) (*Order, error) {
	return r.get(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (r *repo) get(ctx context.Context, q db.Querier, sql, orderID string) (*Order, error) {
	if !validID(orderID) {
		return nil, nil
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	orders := []Order{o}
	if err := r.loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if !validID(userID) {
		return []Order{}, nil
	}
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func filterWhere(f Filter) *db.Where {
	w := &db.Where{}
	if f.Status != "" {
		w.Add("status = ?", f.Status)
	}
	if f.Q != "" {
		like := db.Like(f.Q)
		w.Add("(number ILIKE ? OR email ILIKE ? OR (first_name || ' ' || last_name) ILIKE ? OR id::text ILIKE ?)",
			like, like, like, like)
	}
	if f.From != nil {
		w.Add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.Add("created_at < ?", *f.To)
	}
	if f.UserID != "" {
		w.Add("user_id::text = ?", f.UserID)
	}
	return w
}

func (r *repo) List(ctx context.Context, f Filter, p pagination.Page) ([]Order, int, error) {
	w := filterWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders, err := r.query(ctx,
		`SELECT `+orderColumns+` FROM orders`+w.SQL()+` ORDER BY created_at DESC LIMIT `+w.Next(1)+` OFFSET `+w.Next(2),
		w.Args(p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) All(ctx context.Context, f Filter) ([]Order, error) {
	w := filterWhere(f)
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders`+w.SQL()+` ORDER BY created_at DESC`, w.Args()...)
}

func (r *repo) query(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items for all orders with a single query.
func (r *repo) loadItems(ctx context.Context, q db.Querier, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []Item{}
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, package_id, name, quantity, price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, product_id, package_id`, ids)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.PackageID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *repo) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID string, status Status, paymentRef string) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, payment_ref = COALESCE(NULLIF($3, ''), payment_ref), updated_at = now()
		WHERE id = $1`, orderID, status, paymentRef)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, orderID string) error {
	if !validID(orderID) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) FindIdempotency(ctx context.Context, key string) (string, string, bool, error) {
	var orderID, hash string
	err := r.pool.QueryRow(ctx,
		`SELECT order_id, request_hash FROM order_idempotency WHERE idempotency_key = $1`, key,
	).Scan(&orderID, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("select idempotency: %w", err)
	}
	return orderID, hash, true, nil
}

// SaveIdempotencyWithTx returns errIdempotencyRace when another request
// committed the same key first.
func (r *repo) SaveIdempotencyWithTx(ctx context.Context, tx pgx.Tx, key, orderID, requestHash string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO order_idempotency (idempotency_key, order_id, request_hash) VALUES ($1, $2, $3)`,
		key, orderID, requestHash,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return errIdempotencyRace
		}
		return fmt.Errorf("insert idempotency: %w", err)
	}
	return nil
}
