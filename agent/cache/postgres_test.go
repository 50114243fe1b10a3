package cache

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// postgresDSNEnv points the backend suites at a disposable database.
const postgresDSNEnv = "CACHE_TEST_POSTGRES_DSN"

func mustPostgresStore(t *testing.T, dsn string) *PostgresStore {
	t.Helper()
	store, err := OpenPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, store.Purge(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenPostgresStoreValidatesInput(t *testing.T) {
	_, err := OpenPostgresStore(context.Background(), "   ")
	assert.Error(t, err)

	_, err = NewPostgresStore(context.Background(), nil)
	assert.Error(t, err)
}

func TestPostgresUpsertQuery(t *testing.T) {
	// sql.OpenDB does not dial, so the query can be rendered offline.
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://cache@localhost:5432/cache?sslmode=disable")))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })

	query := upsertQuery(db, "abc123", Record{WrittenAt: 1767225600.5, Data: []byte(`{"name":"Acme"}`)}).String()

	assert.Contains(t, query, `INSERT INTO "research_cache"`)
	assert.Contains(t, query, `'abc123'`)
	assert.Contains(t, query, `'{"name":"Acme"}'`)
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET written_at = EXCLUDED.written_at, data = EXCLUDED.data")
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	ctx := context.Background()
	store := mustPostgresStore(t, dsn)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Store(ctx, "k1", Record{WrittenAt: 100, Data: []byte(`{"v":1}`)}))
	require.NoError(t, store.Store(ctx, "k1", Record{WrittenAt: 200, Data: []byte(`{"v":2}`)}))

	rec, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, rec.WrittenAt)
	assert.JSONEq(t, `{"v":2}`, string(rec.Data))

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Load(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Store(ctx, "k2", Record{WrittenAt: 1, Data: []byte(`{}`)}))
	require.NoError(t, store.Purge(ctx))
	_, err = store.Load(ctx, "k2")
	assert.ErrorIs(t, err, ErrNotFound)
}
