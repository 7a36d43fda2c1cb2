package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	Get(ctx context.Context, productID string) (StockItem, error)
	List(ctx context.Context) ([]StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
	ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error)
	ReleaseWithTx(ctx context.Context, tx pgx.Tx, lines []Line) error
}

type PostgresRepository struct {
	pool db.Pool
}

func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT product_id, available, updated_at FROM inventory_stock WHERE product_id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Available, &item.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, fmt.Errorf("select stock: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, available, updated_at FROM inventory_stock ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("select stock: %w", err)
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		var it StockItem
		if err := rows.Scan(&it.ProductID, &it.Available, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) SetAvailable(ctx context.Context, productID string, available int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_stock(product_id, available)
		VALUES($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET available=EXCLUDED.available, updated_at=now()
	`, productID, available)
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	return nil
}

// ReserveWithTx locks the stock rows and decrements them. When any line is
// short nothing is written and the shortfall is reported in Depleted.
func (r *PostgresRepository) ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error) {
	res := ReserveResult{}
	lines = sortedLines(lines)

	type locked struct {
		productID string
		requested int
	}
	lockedRows := make([]locked, 0, len(lines))

	for _, line := range lines {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT available
			FROM inventory_stock
			WHERE product_id=$1
			FOR UPDATE
		`, line.ProductID).Scan(&available)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return res, fmt.Errorf("lock stock %s: %w", line.ProductID, err)
			}
			available = 0
		}

		lockedRows = append(lockedRows, locked{productID: line.ProductID, requested: line.Quantity})
		if available < line.Quantity {
			res.Depleted = append(res.Depleted, DepletedLine{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}

	if len(res.Depleted) > 0 {
		return res, nil
	}

	for _, row := range lockedRows {
		_, err := tx.Exec(ctx, `
			UPDATE inventory_stock
			SET available = available - $2, updated_at=now()
			WHERE product_id=$1
		`, row.productID, row.requested)
		if err != nil {
			return res, fmt.Errorf("decrement stock %s: %w", row.productID, err)
		}
		res.Reserved = append(res.Reserved, Line{ProductID: row.productID, Quantity: row.requested})
	}

	return res, nil
}

// ReleaseWithTx puts reserved units back, e.g. when an order is cancelled.
func (r *PostgresRepository) ReleaseWithTx(ctx context.Context, tx pgx.Tx, lines []Line) error {
	for _, line := range sortedLines(lines) {
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory_stock(product_id, available)
			VALUES($1, $2)
			ON CONFLICT (product_id) DO UPDATE SET available = inventory_stock.available + EXCLUDED.available, updated_at=now()
		`, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("release stock %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// sortedLines merges duplicates and orders by product id so concurrent
// reservations take row locks in the same order.
func sortedLines(lines []Line) []Line {
	byProduct := make(map[string]int, len(lines))
	for _, l := range lines {
		byProduct[l.ProductID] += l.Quantity
	}
	out := make([]Line, 0, len(byProduct))
	for id, q := range byProduct {
		out = append(out, Line{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
