package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa/internal/domain"
)

type failingBackend struct {
	mu    sync.Mutex
	fail  bool
	saves int
	last  *Data
}

func (f *failingBackend) Name() string                        { return "fake" }
func (f *failingBackend) Load(context.Context) (*Data, error) { return nil, nil }
func (f *failingBackend) Close() error                        { return nil }

func (f *failingBackend) Save(_ context.Context, d *Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.fail {
		return errors.New("disk full")
	}
	f.last = d
	return nil
}

func (f *failingBackend) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), NewFileBackend(filepath.Join(t.TempDir(), "db.json")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestOpenEmpty(t *testing.T) {
	s := setupTestStore(t)

	s.Read(func(d *Data) {
		assert.NotNil(t, d.Tables)
		assert.NotNil(t, d.Orders)
		assert.NotNil(t, d.AuditLogs)
		assert.Empty(t, d.Users)
	})
	assert.Equal(t, uint64(0), s.Version())
	assert.False(t, s.Degraded())
}

func TestUpdateBumpsVersion(t *testing.T) {
	s := setupTestStore(t)

	err := s.Update(func(d *Data) error {
		d.Tables = append(d.Tables, domain.Table{ID: 1, Code: "ABCDE", Status: domain.TableActive})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Version())

	boom := errors.New("boom")
	err = s.Update(func(d *Data) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), s.Version())
}

func TestFileBackendPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Update(func(d *Data) error {
		d.Orders = append(d.Orders, domain.Order{
			ID:        100,
			TableCode: "QR001",
			TableID:   7,
			Status:    domain.OrderPending,
			Total:     22,
			CreatedAt: created,
			UpdatedAt: created,
		})
		return nil
	}))
	require.NoError(t, s.Close(ctx))

	reopened, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	reopened.Read(func(d *Data) {
		require.Len(t, d.Orders, 1)
		assert.Equal(t, "QR001", d.Orders[0].TableCode)
		assert.True(t, created.Equal(d.Orders[0].CreatedAt))
	})
	assert.Greater(t, reopened.NextID(), int64(100))
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	defer b.Close()

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	d := NewData()
	d.Tables = append(d.Tables, domain.Table{ID: 1, Code: "ABCDE", Status: domain.TableActive})
	d.Categories = append(d.Categories, domain.Category{ID: 2, Name: "Bebidas"})
	require.NoError(t, b.Save(ctx, d))

	d.Tables[0].Status = domain.TableInactive
	require.NoError(t, b.Save(ctx, d))

	loaded, err = b.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Tables, 1)
	assert.Equal(t, domain.TableInactive, loaded.Tables[0].Status)
	assert.Equal(t, "Bebidas", loaded.Categories[0].Name)

	var count int
	count, err = b.bunDB().NewSelect().Model((*CollectionRow)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Collections), count)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(":memory:")
	require.NoError(t, err)

	s, err := Open(ctx, b)
	require.NoError(t, err)

	require.NoError(t, s.Update(func(d *Data) error {
		d.Users = append(d.Users, domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
		return nil
	}))
	require.NoError(t, s.Flush(ctx))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Users, 1)
	assert.Equal(t, "admin", loaded.Users[0].Username)

	require.NoError(t, s.Close(ctx))
}

func TestFlushFailureDegrades(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{fail: true}
	s, err := Open(ctx, backend)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Update(func(d *Data) error {
		d.Tables = append(d.Tables, domain.Table{ID: 1, Code: "ABCDE"})
		return nil
	}))

	// State is updated even though persistence fails.
	err = s.Flush(ctx)
	assert.Error(t, err)
	assert.True(t, s.Degraded())
	assert.Error(t, s.LastFlushError())
	s.Read(func(d *Data) {
		assert.Len(t, d.Tables, 1)
	})

	backend.setFail(false)
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Degraded())
	assert.NoError(t, s.LastFlushError())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.NotNil(t, backend.last)
	assert.Len(t, backend.last.Tables, 1)
}

func TestBackgroundFlush(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s, err := Open(ctx, backend)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Update(func(d *Data) error {
		d.Products = append(d.Products, domain.Product{ID: 1, Name: "Taco"})
		return nil
	}))

	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.last != nil && len(backend.last.Products) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFlushSkipsUnchangedVersion(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s, err := Open(ctx, backend)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Flush(ctx))
	backend.mu.Lock()
	saves := backend.saves
	backend.mu.Unlock()
	assert.Equal(t, 0, saves)
}

func TestUpdateAfterClose(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &failingBackend{})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	err = s.Update(func(d *Data) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNextIDMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	s, err := Open(context.Background(), &failingBackend{}, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	defer s.Close(context.Background())

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.NextID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	first := s.NextID()
	assert.Greater(t, s.NextID(), first)
	assert.GreaterOrEqual(t, first, fixed.UnixMilli())
}

func TestConcurrentUpdates(t *testing.T) {
	s := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.NextID()
			_ = s.Update(func(d *Data) error {
				d.Orders = append(d.Orders, domain.Order{ID: id})
				return nil
			})
		}()
	}
	wg.Wait()

	s.Read(func(d *Data) {
		assert.Len(t, d.Orders, 100)
	})
	assert.Equal(t, uint64(100), s.Version())
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(DriverJSON, filepath.Join(t.TempDir(), "db.json"), false)
	require.NoError(t, err)
	assert.Equal(t, "json", b.Name())

	b, err = NewBackend(DriverSQLite, ":memory:", false)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", b.Name())
	require.NoError(t, b.Close())

	_, err = NewBackend("mongo", "", false)
	assert.Error(t, err)
}
