package user

import (
	"context"
	"strings"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type Service struct {
	repo              Repository
	pool              db.Pool
	minPasswordLength int
}

func NewService(repo Repository, pool db.Pool, minPasswordLength int) *Service {
	return &Service{repo: repo, pool: pool, minPasswordLength: minPasswordLength}
}

// Exists answers the storefront's "do you already have an account" check.
func (s *Service) Exists(ctx context.Context, email string) (bool, error) {
	if err := validate.Email("email", email); err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, email)
}

func (s *Service) ValidatePassword(password string) error {
	return validate.MinLength("password", password, s.minPasswordLength)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = RoleCustomer
	}
	err := validate.First(
		validate.Email("email", in.Email),
		s.ValidatePassword(in.Password),
		validRole(in.Role),
	)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, s.pool, in)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, p pagination.Page) (pagination.Result[User], error) {
	if f.Role != "" {
		if err := validRole(f.Role); err != nil {
			return pagination.Result[User]{}, err
		}
	}
	users, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return pagination.Result[User]{}, err
	}
	return pagination.NewResult(users, total, p), nil
}

func (s *Service) All(ctx context.Context, f Filter) ([]User, error) {
	if f.Role != "" {
		if err := validRole(f.Role); err != nil {
			return nil, err
		}
	}
	return s.repo.All(ctx, f)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	if in.Role != nil {
		if err := validRole(*in.Role); err != nil {
			return User{}, err
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validRole(r Role) error {
	if !r.Valid() {
		return validate.Errorf("role", "must be customer or admin")
	}
	return nil
}
