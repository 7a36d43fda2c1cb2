package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type fakeRepo struct {
	Repository
	existsFunc func(ctx context.Context, email string) (bool, error)
	createFunc func(ctx context.Context, in CreateInput) (User, error)
	listFunc   func(ctx context.Context, f Filter, p pagination.Page) ([]User, int, error)
	updateFunc func(ctx context.Context, id string, in UpdateInput) (User, error)
}

func (f *fakeRepo) Exists(ctx context.Context, email string) (bool, error) {
	return f.existsFunc(ctx, email)
}

func (f *fakeRepo) Create(ctx context.Context, q db.Querier, in CreateInput) (User, error) {
	return f.createFunc(ctx, in)
}

func (f *fakeRepo) List(ctx context.Context, flt Filter, p pagination.Page) ([]User, int, error) {
	return f.listFunc(ctx, flt, p)
}

func (f *fakeRepo) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	return f.updateFunc(ctx, id, in)
}

func TestService_Exists(t *testing.T) {
	called := false
	svc := NewService(&fakeRepo{existsFunc: func(ctx context.Context, email string) (bool, error) {
		called = true
		return true, nil
	}}, nil, 8)

	_, err := svc.Exists(context.Background(), "not-an-email")
	assert.True(t, validate.IsValidation(err))
	assert.False(t, called)

	ok, err := svc.Exists(context.Background(), "jane@codeqr.fr")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_Create(t *testing.T) {
	var got CreateInput
	svc := NewService(&fakeRepo{createFunc: func(ctx context.Context, in CreateInput) (User, error) {
		got = in
		return User{ID: "u1", Email: in.Email, Role: in.Role}, nil
	}}, nil, 8)

	_, err := svc.Create(context.Background(), CreateInput{Email: "jane@codeqr.fr", Password: "short"})
	assert.True(t, validate.IsValidation(err))

	_, err = svc.Create(context.Background(), CreateInput{Email: "jane@codeqr.fr", Password: "long enough", Role: "root"})
	assert.True(t, validate.IsValidation(err))

	u, err := svc.Create(context.Background(), CreateInput{Email: "jane@codeqr.fr", Name: "  Jane ", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.Equal(t, "Jane", got.Name)
}

func TestService_List(t *testing.T) {
	svc := NewService(&fakeRepo{listFunc: func(ctx context.Context, f Filter, p pagination.Page) ([]User, int, error) {
		return []User{{ID: "u1"}}, 45, nil
	}}, nil, 8)

	res, err := svc.List(context.Background(), Filter{}, pagination.Page{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPages)

	_, err = svc.List(context.Background(), Filter{Role: "root"}, pagination.Page{Page: 1, PageSize: 20})
	assert.True(t, validate.IsValidation(err))
}

func TestService_UpdateRejectsUnknownRole(t *testing.T) {
	svc := NewService(&fakeRepo{updateFunc: func(ctx context.Context, id string, in UpdateInput) (User, error) {
		return User{ID: id, Name: *in.Name}, nil
	}}, nil, 8)

	bad := Role("root")
	_, err := svc.Update(context.Background(), "u1", UpdateInput{Role: &bad})
	assert.True(t, validate.IsValidation(err))

	name := " Jane "
	u, err := svc.Update(context.Background(), "u1", UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.Name)
}
