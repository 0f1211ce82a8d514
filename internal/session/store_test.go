// internal/session/store_test.go
package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/database"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/models"
)

// ==========================
// TEST SETUP
// ==========================

func setupRedisStore(t *testing.T) *RedisStore {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &database.RedisClient{
		Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour)
}

func sampleRecord(sessionID string) *models.ApplicationRecord {
	rec := models.NewRecord(sessionID)
	rec.CustomerID = "CUST001"
	rec.AppendUser("hello")
	return rec
}

// ==========================
// MEMORY STORE TESTS
// ==========================

func TestMemoryStore_CreateGetReplace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := sampleRecord("sess-1")
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "CUST001", got.CustomerID)
	assert.Len(t, got.History, 1)

	got.Stage = models.StageSalesNegotiation
	require.NoError(t, store.Replace(ctx, got))

	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageSalesNegotiation, again.Stage)
}

func TestMemoryStore_GetUnknownSession(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.CodeOf(err))
}

func TestMemoryStore_ReplaceUnknownSession(t *testing.T) {
	store := NewMemoryStore()

	err := store.Replace(context.Background(), sampleRecord("ghost"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.CodeOf(err))
}

func TestMemoryStore_GetReturnsIsolatedCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, sampleRecord("sess-copy")))

	first, err := store.Get(ctx, "sess-copy")
	require.NoError(t, err)
	first.AppendAssistant(models.UnitMaster, "mutated outside Replace")

	second, err := store.Get(ctx, "sess-copy")
	require.NoError(t, err)
	assert.Len(t, second.History, 1, "stored record must not see caller mutations")
}

func TestMemoryStore_IndependentSessionsDoNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// Hold the lock on one session and prove a differently-striped
	// session can still acquire its own lock.
	store.Lock("session-held")
	defer store.Unlock("session-held")

	other := "session-free"
	if store.locks.stripe(other) == store.locks.stripe("session-held") {
		other = "session-free-2"
	}
	require.NotSame(t, store.locks.stripe("session-held"), store.locks.stripe(other))

	done := make(chan struct{})
	go func() {
		store.Lock(other)
		store.Unlock(other)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("independent session blocked on an unrelated lock")
	}
}

func TestMemoryStore_SameSessionSerializes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, sampleRecord("sess-serial")))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Lock("sess-serial")
			defer store.Unlock("sess-serial")

			rec, err := store.Get(ctx, "sess-serial")
			assert.NoError(t, err)
			rec.Interactions++
			assert.NoError(t, store.Replace(ctx, rec))
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, "sess-serial")
	require.NoError(t, err)
	// One increment per worker plus the one from AppendUser in the fixture.
	assert.Equal(t, workers+1, rec.Interactions)
}

// ==========================
// REDIS STORE TESTS
// ==========================

func TestRedisStore_RoundTrip(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	rec := sampleRecord("sess-r1")
	rec.RequestedAmount = 500000
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, "sess-r1")
	require.NoError(t, err)
	assert.Equal(t, "CUST001", got.CustomerID)
	assert.Equal(t, float64(500000), got.RequestedAmount)
	assert.Equal(t, models.StageGreeting, got.Stage)
	require.Len(t, got.History, 1)
	assert.Equal(t, models.RoleUser, got.History[0].Role)
}

func TestRedisStore_GetUnknownSession(t *testing.T) {
	store := setupRedisStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.CodeOf(err))
}

func TestRedisStore_ReplaceUnknownSession(t *testing.T) {
	store := setupRedisStore(t)

	err := store.Replace(context.Background(), sampleRecord("ghost"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.CodeOf(err))
}
