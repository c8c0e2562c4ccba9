package kv

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	kvlib "github.com/Laisky/laisky-doc-registry/library/db/kv"
)

func setupTestKv(t *testing.T) *Kv {
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err, "failed to connect to in-memory db")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	// Create a new Kv instance with the test table name.
	store, err := NewKv(db, WithTableName("test_kv"))
	require.NoError(t, err, "failed to create kv instance")
	return store
}

func TestSetAndGet(t *testing.T) {
	store := setupTestKv(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "entry:1", []byte("v1")))

	val, err := store.Get(ctx, "entry:1")
	require.NoError(t, err, "Get should not error")
	require.Equal(t, []byte("v1"), val)

	// overwrite
	require.NoError(t, store.Set(ctx, "entry:1", []byte("v2")))
	val, err = store.Get(ctx, "entry:1")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), val)
}

func TestGetMissingKey(t *testing.T) {
	store := setupTestKv(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "entry:404")
	require.ErrorIs(t, err, kvlib.ErrKeyNotFound)
}

func TestExistsAndDel(t *testing.T) {
	store := setupTestKv(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "grant:1:alice", []byte("true")))

	exists, err := store.Exists(ctx, "grant:1:alice")
	require.NoError(t, err, "Exists should not error")
	require.True(t, exists, "key should exist")

	require.NoError(t, store.Del(ctx, "grant:1:alice"))

	exists, err = store.Exists(ctx, "grant:1:alice")
	require.NoError(t, err, "Exists after deletion should not error")
	require.False(t, exists, "key should not exist after deletion")
}

func TestKeysPrefixScan(t *testing.T) {
	store := setupTestKv(t)
	ctx := context.Background()

	for _, key := range []string{
		"grant:1:alice", "grant:1:bob", "grant:10:carol", "counter:entries",
	} {
		require.NoError(t, store.Set(ctx, key, []byte("x")))
	}

	keys, err := store.Keys(ctx, "grant:1:")
	require.NoError(t, err)
	require.Equal(t, []string{"grant:1:alice", "grant:1:bob"}, keys)

	keys, err = store.Keys(ctx, "grant:")
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
