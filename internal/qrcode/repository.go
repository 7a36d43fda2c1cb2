package qrcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
)

var ErrDuplicateCode = errors.New("duplicate qr code")

// Repository reads return (nil, nil) when nothing matches.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*QRCode, error)
	GetByCodeForUpdateWithTx(ctx context.Context, tx pgx.Tx, code string) (*QRCode, error)
	GetByID(ctx context.Context, id string) (*QRCode, error)
	Insert(ctx context.Context, code string, orderID *string) (QRCode, error)
	ActivateWithTx(ctx context.Context, tx pgx.Tx, id, userID, redirectURL string, at time.Time) error
	UpdateRedirect(ctx context.Context, id, redirectURL string) (QRCode, error)
	RecordScan(ctx context.Context, code string) (redirectURL string, ok bool, err error)
	List(ctx context.Context, f Filter, p pagination.Page) ([]QRCode, int, error)
	All(ctx context.Context, f Filter) ([]QRCode, error)
	Update(ctx context.Context, id string, in UpdateInput) (*QRCode, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type PostgresRepository struct {
	pool db.Pool
}

func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const qrColumns = `id, code, status, user_id, order_id, redirect_url, scan_count, activated_at, created_at, updated_at`

func scanQR(row pgx.Row) (QRCode, error) {
	var q QRCode
	err := row.Scan(&q.ID, &q.Code, &q.Status, &q.UserID, &q.OrderID, &q.RedirectURL,
		&q.ScanCount, &q.ActivatedAt, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *PostgresRepository) one(ctx context.Context, q db.Querier, sql string, args ...any) (*QRCode, error) {
	code, err := scanQR(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select qr code: %w", err)
	}
	return &code, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*QRCode, error) {
	return r.one(ctx, r.pool, `SELECT `+qrColumns+` FROM qr_codes WHERE code = $1`, code)
}

func (r *PostgresRepository) GetByCodeForUpdateWithTx(ctx context.Context, tx pgx.Tx, code string) (*QRCode, error) {
	return r.one(ctx, tx, `SELECT `+qrColumns+` FROM qr_codes WHERE code = $1 FOR UPDATE`, code)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*QRCode, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.one(ctx, r.pool, `SELECT `+qrColumns+` FROM qr_codes WHERE id = $1`, id)
}

func (r *PostgresRepository) Insert(ctx context.Context, code string, orderID *string) (QRCode, error) {
	q, err := scanQR(r.pool.QueryRow(ctx, `
		INSERT INTO qr_codes (id, code, status, order_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+qrColumns,
		uuid.NewString(), code, StatusInactive, orderID,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return QRCode{}, ErrDuplicateCode
		}
		return QRCode{}, fmt.Errorf("insert qr code: %w", err)
	}
	return q, nil
}

func (r *PostgresRepository) ActivateWithTx(ctx context.Context, tx pgx.Tx, id, userID, redirectURL string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE qr_codes
		SET status = $2, user_id = $3, redirect_url = $4, activated_at = $5, updated_at = $5
		WHERE id = $1`,
		id, StatusActive, userID, redirectURL, at,
	)
	if err != nil {
		return fmt.Errorf("activate qr code: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateRedirect(ctx context.Context, id, redirectURL string) (QRCode, error) {
	q, err := scanQR(r.pool.QueryRow(ctx, `
		UPDATE qr_codes SET redirect_url = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+qrColumns, id, redirectURL))
	if err != nil {
		return QRCode{}, fmt.Errorf("update redirect: %w", err)
	}
	return q, nil
}

// RecordScan counts a scan of an active code and returns its target. ok is
// false when the code is missing or not active.
func (r *PostgresRepository) RecordScan(ctx context.Context, code string) (string, bool, error) {
	var target string
	err := r.pool.QueryRow(ctx, `
		UPDATE qr_codes SET scan_count = scan_count + 1
		WHERE code = $1 AND status = $2
		RETURNING redirect_url`, code, StatusActive).Scan(&target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("record scan: %w", err)
	}
	return target, true, nil
}

func filterWhere(f Filter) *db.Where {
	w := &db.Where{}
	if f.Status != "" {
		w.Add("status = ?", f.Status)
	}
	if f.Q != "" {
		like := db.Like(f.Q)
		w.Add("(code ILIKE ? OR redirect_url ILIKE ?)", like, like)
	}
	if f.UserID != "" {
		w.Add("user_id::text = ?", f.UserID)
	}
	return w
}

func (r *PostgresRepository) List(ctx context.Context, f Filter, p pagination.Page) ([]QRCode, int, error) {
	w := filterWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM qr_codes`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count qr codes: %w", err)
	}
	codes, err := r.query(ctx,
		`SELECT `+qrColumns+` FROM qr_codes`+w.SQL()+` ORDER BY created_at DESC, code LIMIT `+w.Next(1)+` OFFSET `+w.Next(2),
		w.Args(p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

func (r *PostgresRepository) All(ctx context.Context, f Filter) ([]QRCode, error) {
	w := filterWhere(f)
	return r.query(ctx, `SELECT `+qrColumns+` FROM qr_codes`+w.SQL()+` ORDER BY created_at DESC, code`, w.Args()...)
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]QRCode, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select qr codes: %w", err)
	}
	defer rows.Close()

	codes := []QRCode{}
	for rows.Next() {
		q, err := scanQR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan qr code: %w", err)
		}
		codes = append(codes, q)
	}
	return codes, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in UpdateInput) (*QRCode, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.one(ctx, r.pool, `
		UPDATE qr_codes SET
			status       = CASE WHEN $4 THEN 'inactive' ELSE COALESCE($2, status) END,
			redirect_url = CASE WHEN $4 THEN '' ELSE COALESCE($3, redirect_url) END,
			user_id      = CASE WHEN $4 THEN NULL ELSE user_id END,
			activated_at = CASE WHEN $4 THEN NULL ELSE activated_at END,
			updated_at   = now()
		WHERE id = $1
		RETURNING `+qrColumns,
		id, in.Status, in.RedirectURL, in.Unbind,
	)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM qr_codes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete qr code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
