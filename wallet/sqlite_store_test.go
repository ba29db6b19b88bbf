package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreMissingUser(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.GetDocument(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrUserRecordMissing))
}

func TestSQLiteStoreSeededUserHasNoAddresses(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedUser(ctx, "user-1"))

	doc, err := store.GetDocument(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", doc.UserID)
	assert.Empty(t, doc.Addresses)

	for i := range Assets {
		_, ok := doc.Address(&Assets[i])
		assert.False(t, ok, "asset %s should have no address", Assets[i].ID)
	}
}

func TestSQLiteStoreUpsertAndGet(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertAddress(ctx, "user-1", "btc_btc", "bc1qtest"))
	require.NoError(t, store.UpsertAddress(ctx, "user-1", "usdt_tron", "TXYZtest"))

	doc, err := store.GetDocument(ctx, "user-1")
	require.NoError(t, err)

	btc, _ := Lookup(AssetBTC)
	addr, ok := doc.Address(btc)
	assert.True(t, ok)
	assert.Equal(t, "bc1qtest", addr)

	usdt, _ := Lookup(AssetUSDT)
	addr, ok = doc.Address(usdt)
	assert.True(t, ok)
	assert.Equal(t, "TXYZtest", addr)

	eth, _ := Lookup(AssetETH)
	_, ok = doc.Address(eth)
	assert.False(t, ok)
}

func TestSQLiteStoreUpsertOverwrites(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertAddress(ctx, "user-1", "eth_eth", "0xold"))
	require.NoError(t, store.UpsertAddress(ctx, "user-1", "eth_eth", "0xnew"))

	doc, err := store.GetDocument(ctx, "user-1")
	require.NoError(t, err)

	eth, _ := Lookup(AssetETH)
	addr, _ := doc.Address(eth)
	assert.Equal(t, "0xnew", addr)
}

func TestSQLiteStoreRejectsUnknownField(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.UpsertAddress(context.Background(), "user-1", "doge_doge", "Dtest")
	assert.Error(t, err)
}

func TestSQLiteStoreScopesUsers(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertAddress(ctx, "user-1", "ltc_ltc", "Lone"))
	require.NoError(t, store.UpsertAddress(ctx, "user-2", "ltc_ltc", "Ltwo"))

	ltc, _ := Lookup(AssetLTC)

	doc, err := store.GetDocument(ctx, "user-1")
	require.NoError(t, err)
	addr, _ := doc.Address(ltc)
	assert.Equal(t, "Lone", addr)

	doc, err = store.GetDocument(ctx, "user-2")
	require.NoError(t, err)
	addr, _ = doc.Address(ltc)
	assert.Equal(t, "Ltwo", addr)
}
