package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository keeps password hashes to itself: callers hand in plain passwords
// and get back users without any hash.
type Repository interface {
	Exists(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Authenticate(ctx context.Context, q db.Querier, email, password string) (User, error)
	Create(ctx context.Context, q db.Querier, in CreateInput) (User, error)
	List(ctx context.Context, f Filter, p pagination.Page) ([]User, int, error)
	All(ctx context.Context, f Filter) ([]User, error)
	Update(ctx context.Context, id string, in UpdateInput) (User, error)
	Delete(ctx context.Context, id string) error
}

type PostgresRepository struct {
	pool     db.Pool
	hashCost int
}

// NewPostgresRepository uses bcrypt.DefaultCost when hashCost is 0.
func NewPostgresRepository(pool db.Pool, hashCost int) *PostgresRepository {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &PostgresRepository{pool: pool, hashCost: hashCost}
}

const userColumns = `id, email, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PostgresRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

// Authenticate returns ErrNotFound when no user has the email and
// ErrInvalidCredentials when the password does not match.
func (r *PostgresRepository) Authenticate(ctx context.Context, q db.Querier, email, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := q.QueryRow(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email=$1`, NormalizeEmail(email)).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, q db.Querier, in CreateInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role == "" {
		role = RoleCustomer
	}

	u, err := scanUser(q.QueryRow(ctx, `
		INSERT INTO users (id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uuid.NewString(), NormalizeEmail(in.Email), in.Name, role, string(hash),
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func filterWhere(f Filter) *db.Where {
	w := &db.Where{}
	if f.Q != "" {
		like := db.Like(f.Q)
		w.Add("(email ILIKE ? OR name ILIKE ?)", like, like)
	}
	if f.Role != "" {
		w.Add("role = ?", f.Role)
	}
	return w
}

func (r *PostgresRepository) List(ctx context.Context, f Filter, p pagination.Page) ([]User, int, error) {
	w := filterWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users, err := r.query(ctx,
		`SELECT `+userColumns+` FROM users`+w.SQL()+` ORDER BY created_at DESC LIMIT `+w.Next(1)+` OFFSET `+w.Next(2),
		w.Args(p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *PostgresRepository) All(ctx context.Context, f Filter) ([]User, error) {
	w := filterWhere(f)
	return r.query(ctx, `SELECT `+userColumns+` FROM users`+w.SQL()+` ORDER BY created_at DESC`, w.Args()...)
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($2, name), role = COALESCE($3, role), updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, in.Name, in.Role,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
