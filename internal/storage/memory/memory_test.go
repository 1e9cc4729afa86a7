package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/storage"
)

func testChallenge(email string) *domain.Challenge {
	return &domain.Challenge{
		Email:     email,
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ch := testChallenge("user@example.com")
	require.NoError(t, store.Put(ctx, ch))

	got, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, ch.Code, got.Code)
	assert.Equal(t, ch.ExpiresAt, got.ExpiresAt)
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get(context.Background(), "absent@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := testChallenge("user@example.com")
	require.NoError(t, store.Put(ctx, first))

	second := testChallenge("user@example.com")
	second.Code = "654321"
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", got.Code)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("user@example.com")))
	require.NoError(t, store.Delete(ctx, "user@example.com"))
	require.NoError(t, store.Delete(ctx, "user@example.com"))

	_, err := store.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ConsumeMatch(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("user@example.com")))

	ok, err := store.Consume(ctx, "user@example.com", "123456", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// Consumed on success: second attempt finds nothing
	ok, err = store.Consume(ctx, "user@example.com", "123456", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConsumeMismatchKeepsChallenge(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("user@example.com")))

	ok, err := store.Consume(ctx, "user@example.com", "000000", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	// Correct code still works afterwards
	ok, err = store.Consume(ctx, "user@example.com", "123456", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ConsumeExpiredEvicts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ch := testChallenge("user@example.com")
	require.NoError(t, store.Put(ctx, ch))

	late := ch.ExpiresAt.Add(time.Second)
	ok, err := store.Consume(ctx, "user@example.com", "123456", late)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expiry discovery deletes the record
	_, err = store.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ConsumeAbsent(t *testing.T) {
	store := NewStore()

	ok, err := store.Consume(context.Background(), "absent@example.com", "123456", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConsumeConcurrentSingleUse(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const attempts = 32
	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put(ctx, testChallenge("user@example.com")))

		var wg sync.WaitGroup
		results := make(chan bool, attempts)
		for j := 0; j < attempts; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.Consume(ctx, "user@example.com", "123456", time.Now())
				require.NoError(t, err)
				results <- ok
			}()
		}
		wg.Wait()
		close(results)

		successes := 0
		for ok := range results {
			if ok {
				successes++
			}
		}
		assert.Equal(t, 1, successes, "exactly one concurrent consume may succeed")
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	expired := testChallenge("old@example.com")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, expired))

	live := testChallenge("fresh@example.com")
	require.NoError(t, store.Put(ctx, live))

	require.NoError(t, store.DeleteExpired(ctx))

	_, err := store.Get(ctx, "old@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Get(ctx, "fresh@example.com")
	assert.NoError(t, err)
}
