package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCarts_ConcurrentAddsOnSameKey(t *testing.T) {
	ctx := context.Background()
	carts := NewCarts(NewPersistence(NewMemoryStore(), nil, nil))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			carts.AddItem(ctx, "u1", plaque("p1", "10", 10), 1)
		}()
	}
	wg.Wait()

	st := carts.Get(ctx, "u1")
	require.Len(t, st.Items, 1)
	assert.Equal(t, 50, st.ItemCount)
	assert.Equal(t, 500.0, st.Total)
	assert.Empty(t, carts.locks)
}

func TestCarts_Operations(t *testing.T) {
	ctx := context.Background()
	carts := NewCarts(NewPersistence(NewMemoryStore(), nil, nil))

	st, res := carts.AddItem(ctx, "u1", plaque("p1", "10", 100), 2)
	require.True(t, res.OK())
	assert.Equal(t, 200.0, st.Total)

	st, _ = carts.UpdateQuantity(ctx, "u1", ItemID("p1", "10"), 5)
	assert.Equal(t, 5, st.ItemCount)

	st, _ = carts.RemoveItem(ctx, "u1", ItemID("p1", "10"))
	assert.True(t, st.IsEmpty())

	carts.AddItem(ctx, "u1", plaque("p2", "single", 20), 1)
	st, _ = carts.Clear(ctx, "u1")
	assert.Equal(t, Empty(), st)
	assert.Equal(t, Empty(), carts.Get(ctx, "u1"))
}

func TestCarts_CheckoutForgetsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	carts := NewCarts(NewPersistence(store, nil, nil))
	carts.AddItem(ctx, "u1", plaque("p1", "10", 100), 1)

	err := carts.Checkout(ctx, "u1", func(s State) error {
		assert.Equal(t, 1, s.ItemCount)
		return errors.New("out of stock")
	})
	require.Error(t, err)
	assert.Equal(t, 1, carts.Get(ctx, "u1").ItemCount)

	err = carts.Checkout(ctx, "u1", func(s State) error { return nil })
	require.NoError(t, err)
	_, getErr := store.Get(ctx, "u1")
	assert.ErrorIs(t, getErr, ErrNotFound)
}

func TestCarts_AddItemUpTo(t *testing.T) {
	ctx := context.Background()
	carts := NewCarts(NewPersistence(NewMemoryStore(), nil, nil))

	st, res, err := carts.AddItemUpTo(ctx, "u1", plaque("p1", "10", 10), 8, 10)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 8, st.ItemCount)

	st, _, err = carts.AddItemUpTo(ctx, "u1", plaque("p1", "10", 10), 3, 10)
	assert.ErrorIs(t, err, ErrLineLimit)
	assert.Equal(t, 8, st.ItemCount)
	assert.Equal(t, 8, carts.Get(ctx, "u1").ItemCount, "rejected add is not stored")

	st, _, err = carts.AddItemUpTo(ctx, "u1", plaque("p1", "10", 10), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Items[0].Quantity)

	// Zero means one, so a full line rejects it too.
	_, _, err = carts.AddItemUpTo(ctx, "u1", plaque("p1", "10", 10), 0, 10)
	assert.ErrorIs(t, err, ErrLineLimit)

	_, _, err = carts.AddItemUpTo(ctx, "u1", plaque("p2", "10", 10), 0, 10)
	require.NoError(t, err)
	assert.Len(t, carts.Get(ctx, "u1").Items, 2)
}
