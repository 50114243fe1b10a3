package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Score float64  `json:"score"`
	Tags  []string `json:"tags"`
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingDurable struct {
	Durable
	storeErr error
	loadErr  error
}

func (f failingDurable) Store(ctx context.Context, id string, rec Record) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	return f.Durable.Store(ctx, id, rec)
}

func (f failingDurable) Load(ctx context.Context, id string) (Record, error) {
	if f.loadErr != nil {
		return Record{}, f.loadErr
	}
	return f.Durable.Load(ctx, id)
}

func durables(t *testing.T) map[string]func() Durable {
	t.Helper()
	m := map[string]func() Durable{
		"memory": func() Durable { return nil },
		"file": func() Durable {
			fs, err := OpenFileStore(filepath.Join(t.TempDir(), "entries"))
			require.NoError(t, err)
			return fs
		},
		"sqlite": func() Durable {
			db, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return db
		},
	}
	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		m["postgres"] = func() Durable { return mustPostgresStore(t, dsn) }
	}
	return m
}

func TestSetThenGetReturnsEqualValue(t *testing.T) {
	ctx := context.Background()
	want := payload{Name: "Marie Curie", Score: 0.9, Tags: []string{"physics", "chemistry"}}

	for name, mk := range durables(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewService(mk())
			svc.Set(ctx, "Marie Curie", "fact_extraction", want)

			var got payload
			require.True(t, svc.Get(ctx, "Marie Curie", "fact_extraction", &got))
			assert.Equal(t, want, got)

			var other payload
			assert.False(t, svc.Get(ctx, "Marie Curie", "media_lookup", &other), "namespaces must not collide")
		})
	}
}

func TestKeysAreNormalised(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil)
	svc.Set(ctx, "  Marie   CURIE ", "orchestrator", payload{Name: "x"})

	var got payload
	assert.True(t, svc.Get(ctx, "marie curie", "orchestrator", &got))
	assert.Equal(t, LookupID("Marie Curie", "orchestrator"), LookupID("marie  curie", "orchestrator"))
}

func TestGetExpiredEntryIsMissButRecordRemains(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(store, WithTTL(time.Hour), WithClock(clock.Now))
	svc.Set(ctx, "Acme", "gateway", payload{Name: "acme"})

	clock.Advance(59 * time.Minute)
	var got payload
	require.True(t, svc.Get(ctx, "Acme", "gateway", &got))

	clock.Advance(2 * time.Minute)
	assert.False(t, svc.Get(ctx, "Acme", "gateway", &got))

	rec, err := store.Load(ctx, LookupID("Acme", "gateway"))
	require.NoError(t, err, "expiry is logical; the record must still exist")
	assert.NotEmpty(t, rec.Data)
}

func TestDurableHitIsPromoted(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "entries")
	fs, err := OpenFileStore(dir)
	require.NoError(t, err)

	NewService(fs).Set(ctx, "Acme", "summarization", payload{Name: "acme"})

	// a fresh process only sees the durable tier
	restarted := NewService(fs)
	var got payload
	require.True(t, restarted.Get(ctx, "Acme", "summarization", &got))
	assert.Equal(t, "acme", got.Name)

	// once promoted, the volatile tier serves it even if the file disappears
	require.NoError(t, os.RemoveAll(dir))
	got = payload{}
	require.True(t, restarted.Get(ctx, "Acme", "summarization", &got))
	assert.Equal(t, "acme", got.Name)
}

func TestCorruptDurableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := OpenFileStore(dir)
	require.NoError(t, err)

	id := LookupID("Acme", "gateway")
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte("{not json"), 0o644))

	var got payload
	assert.False(t, NewService(fs).Get(ctx, "Acme", "gateway", &got))

	_, err = fs.Load(ctx, id)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestDurableReadFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingDurable{Durable: mustFileStore(t), loadErr: errors.New("disk gone")})

	var got payload
	assert.False(t, svc.Get(ctx, "Acme", "gateway", &got))
}

func TestDurableWriteFailureKeepsVolatileValue(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingDurable{Durable: mustFileStore(t), storeErr: errors.New("read-only fs")})

	svc.Set(ctx, "Acme", "gateway", payload{Name: "acme"})
	var got payload
	require.True(t, svc.Get(ctx, "Acme", "gateway", &got))
	assert.Equal(t, "acme", got.Name)
}

func TestClearAllEmptiesBothTiers(t *testing.T) {
	ctx := context.Background()
	for name, mk := range durables(t) {
		t.Run(name, func(t *testing.T) {
			durable := mk()
			svc := NewService(durable)
			svc.Set(ctx, "Marie Curie", "orchestrator", payload{Name: "a"})
			svc.Set(ctx, "Acme", "gateway", payload{Name: "b"})

			require.NoError(t, svc.Clear(ctx, "", ""))

			var got payload
			assert.False(t, svc.Get(ctx, "Marie Curie", "orchestrator", &got))
			assert.False(t, svc.Get(ctx, "Acme", "gateway", &got))
			if durable != nil {
				_, err := durable.Load(ctx, LookupID("Acme", "gateway"))
				assert.ErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestClearSingleEntry(t *testing.T) {
	ctx := context.Background()
	svc := NewService(mustFileStore(t))
	svc.Set(ctx, "Marie Curie", "orchestrator", payload{Name: "a"})
	svc.Set(ctx, "Acme", "orchestrator", payload{Name: "b"})

	require.NoError(t, svc.Clear(ctx, "Marie Curie", "orchestrator"))

	var got payload
	assert.False(t, svc.Get(ctx, "Marie Curie", "orchestrator", &got))
	assert.True(t, svc.Get(ctx, "Acme", "orchestrator", &got))
}

func TestDisabledCacheNeverHits(t *testing.T) {
	ctx := context.Background()
	fs := mustFileStore(t)
	svc := NewService(fs, WithEnabled(false))
	svc.Set(ctx, "Acme", "gateway", payload{Name: "acme"})

	var got payload
	assert.False(t, svc.Get(ctx, "Acme", "gateway", &got))
	_, err := fs.Load(ctx, LookupID("Acme", "gateway"))
	assert.ErrorIs(t, err, ErrNotFound, "disabled Set must not write")
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	svc := NewService(mustFileStore(t))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				svc.Set(ctx, "shared", "gateway", payload{Name: "v", Score: float64(j)})
				var got payload
				svc.Get(ctx, "shared", "gateway", &got)
			}
		}()
	}
	wg.Wait()

	var got payload
	assert.True(t, svc.Get(ctx, "shared", "gateway", &got))
	assert.Equal(t, "v", got.Name)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "mongo"})
	assert.Error(t, err)
}

func TestOpenMemoryBackend(t *testing.T) {
	svc, err := Open(context.Background(), Config{Backend: BackendMemory, Enabled: true, TTL: time.Minute})
	require.NoError(t, err)
	defer svc.Close()

	svc.Set(context.Background(), "k", "ns", payload{Name: "v"})
	var got payload
	assert.True(t, svc.Get(context.Background(), "k", "ns", &got))
}

func mustFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}
