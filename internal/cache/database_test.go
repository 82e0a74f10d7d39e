package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusportal/internal/database/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*DatabaseStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	return NewDatabaseStore(db, WithClock(clock.Now)), clock
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "flow:1", []byte("payload"), time.Minute))

	value, found, err := store.Get(ctx, "flow:1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "payload", string(value))

	require.NoError(t, store.Set(ctx, "flow:1", []byte("updated"), time.Minute))
	value, _, err = store.Get(ctx, "flow:1")
	require.NoError(t, err)
	require.Equal(t, "updated", string(value))

	clock.Advance(2 * time.Minute)
	_, found, err = store.Get(ctx, "flow:1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Delete(ctx, "a", "b"))
	_, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreIncrementUsesFixedWindow(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "cooldown:x", 20*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, 20*time.Second, ttl)

	clock.Advance(15 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "cooldown:x", 20*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 5*time.Second, ttl, "later increments must not extend the window")

	clock.Advance(5 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "cooldown:x", 20*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, 20*time.Second, ttl)
}

func TestDatabaseStoreConcurrentFirstIncrement(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const callers = 8
	counts := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, _, err := store.IncrementWithTTL(ctx, "cooldown:race", 20*time.Second)
			assert.NoError(t, err)
			counts <- count
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int64]bool)
	for count := range counts {
		seen[count] = true
	}
	require.Len(t, seen, callers)
	for want := int64(1); want <= callers; want++ {
		require.True(t, seen[want], "missing count %d", want)
	}
}

func TestDatabaseStoreDeleteExpired(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, store.Set(ctx, "long", []byte("y"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("z"), 0))

	clock.Advance(time.Minute)
	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, found, err := store.Get(ctx, "long")
	require.NoError(t, err)
	require.True(t, found)
	_, found, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, found)
}

func TestNilDatabaseStore(t *testing.T) {
	var store *DatabaseStore
	require.Nil(t, NewDatabaseStore(nil))
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}
