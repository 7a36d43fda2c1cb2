package cart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "user/1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "user/1", []byte(`{"items":[]}`)))
	require.NoError(t, store.Put(ctx, "user/1", []byte(`{"items":[],"total":0}`)))

	got, err := store.Get(ctx, "user/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(got))

	require.NoError(t, store.Delete(ctx, "user/1"))
	_, err = store.Get(ctx, "user/1")
	require.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "user/1"))
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "carts"))
	require.NoError(t, err)

	testStoreContract(t, store)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "carts"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_KeyIsEscaped(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "../escape", []byte(`{}`)))

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.json"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
}

func TestSQLiteStore_WithPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carts.db")

	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	p := NewPersistence(store, nil, nil)
	c := Open(ctx, "u1", p)
	require.True(t, c.AddItem(ctx, plaque("p1", "10", 149), 2).OK())
	require.NoError(t, store.Close())

	// reopen: the snapshot survives the process
	store, err = OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got := NewPersistence(store, nil, nil).Load(ctx, "u1")
	assert.Equal(t, 2, got.ItemCount)
	assert.Equal(t, 298.0, got.Total)
}
