package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type fakeRepo struct {
	items  map[string]int
	getErr error
}

func (r *fakeRepo) Get(ctx context.Context, productID string) (StockItem, error) {
	if r.getErr != nil {
		return StockItem{}, r.getErr
	}
	v, ok := r.items[productID]
	if !ok {
		return StockItem{}, ErrNotFound
	}
	return StockItem{ProductID: productID, Available: v}, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]StockItem, error) { return nil, nil }

func (r *fakeRepo) SetAvailable(ctx context.Context, productID string, available int) error {
	if r.items == nil {
		r.items = map[string]int{}
	}
	r.items[productID] = available
	return nil
}

func (r *fakeRepo) ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error) {
	return ReserveResult{}, nil
}

func (r *fakeRepo) ReleaseWithTx(ctx context.Context, tx pgx.Tx, lines []Line) error { return nil }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	return c
}

func TestUnits(t *testing.T) {
	cat := testCatalog(t)

	lines, err := Units(cat, []PackageLine{
		{ProductID: "plaque-standard", PackageID: "pack-10", Quantity: 2},
		{ProductID: "plaque-standard", PackageID: "single", Quantity: 3},
		{ProductID: "sticker", PackageID: "pack-10", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{ProductID: "plaque-standard", Quantity: 23},
		{ProductID: "sticker", Quantity: 10},
	}, lines)
}

func TestUnits_Invalid(t *testing.T) {
	cat := testCatalog(t)

	_, err := Units(cat, nil)
	assert.True(t, validate.IsValidation(err))

	_, err = Units(cat, []PackageLine{{ProductID: "plaque-standard", PackageID: "single", Quantity: 0}})
	assert.True(t, validate.IsValidation(err))

	_, err = Units(cat, []PackageLine{{ProductID: "ghost", PackageID: "single", Quantity: 1}})
	assert.True(t, validate.IsValidation(err))

	_, err = Units(cat, []PackageLine{{ProductID: "plaque-standard", PackageID: "single", Quantity: MaxLineQuantity + 1}})
	assert.True(t, validate.IsValidation(err))
}

func TestService_Check(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeRepo{items: map[string]int{"plaque-standard": 12}}, testCatalog(t))

	res, err := svc.Check(ctx, []PackageLine{{ProductID: "plaque-standard", PackageID: "pack-10", Quantity: 1}})
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, []LineAvailability{{ProductID: "plaque-standard", Requested: 10, Available: 12, InStock: true}}, res.Lines)

	res, err = svc.Check(ctx, []PackageLine{
		{ProductID: "plaque-standard", PackageID: "pack-10", Quantity: 2},
		{ProductID: "sticker", PackageID: "pack-10", Quantity: 1},
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.Lines, 2)
	assert.False(t, res.Lines[0].InStock)
	assert.Equal(t, 0, res.Lines[1].Available)
}

func TestService_CheckRejectsHugeQuantity(t *testing.T) {
	svc := NewService(&fakeRepo{items: map[string]int{"plaque-standard": 5}}, testCatalog(t))

	// 10 units per pack times this quantity wraps int64 to a small number.
	_, err := svc.Check(context.Background(), []PackageLine{{ProductID: "plaque-standard", PackageID: "pack-10", Quantity: 1844674407370955162}})
	require.Error(t, err)
	assert.True(t, validate.IsValidation(err))

	res, err := svc.Check(context.Background(), []PackageLine{{ProductID: "plaque-standard", PackageID: "pack-10", Quantity: MaxLineQuantity}})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, 10*MaxLineQuantity, res.Lines[0].Requested)
}

func TestService_CheckRepoError(t *testing.T) {
	svc := NewService(&fakeRepo{getErr: errors.New("db down")}, testCatalog(t))
	_, err := svc.Check(context.Background(), []PackageLine{{ProductID: "sticker", PackageID: "pack-10", Quantity: 1}})
	assert.ErrorContains(t, err, "db down")
}

func TestService_SetAvailable(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, testCatalog(t))

	require.NoError(t, svc.SetAvailable(context.Background(), "sticker", 500))
	assert.Equal(t, 500, repo.items["sticker"])

	assert.True(t, validate.IsValidation(svc.SetAvailable(context.Background(), "sticker", -1)))
	assert.True(t, validate.IsValidation(svc.SetAvailable(context.Background(), "ghost", 1)))
}
