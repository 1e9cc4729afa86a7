package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

func getTestMongoURI() string {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	return uri
}

func skipIfNoMongo(t *testing.T) *Store {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &config.MongoDBConfig{
		URI:      getTestMongoURI(),
		Database: "shop_backend_test",
		Timeout:  5,
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
		return nil
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = store.database.Drop(ctx)
		_ = store.Close()
	})

	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	ch := &domain.Challenge{
		Email:     "user@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute).Truncate(time.Millisecond),
	}
	require.NoError(t, store.Put(ctx, ch))

	got, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, ch.Code, got.Code)

	require.NoError(t, store.Delete(ctx, "user@example.com"))

	_, err = store.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()

	first := &domain.Challenge{Email: "user@example.com", Code: "111111", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, first))

	second := &domain.Challenge{Email: "user@example.com", Code: "222222", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)
}

func TestStore_ConsumeSemantics(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()
	now := time.Now()

	ch := &domain.Challenge{Email: "user@example.com", Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, store.Put(ctx, ch))

	// Wrong code keeps the challenge
	ok, err := store.Consume(ctx, "user@example.com", "000000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Correct code consumes it
	ok, err = store.Consume(ctx, "user@example.com", "123456", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Single use
	ok, err = store.Consume(ctx, "user@example.com", "123456", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConsumeExpired(t *testing.T) {
	store := skipIfNoMongo(t)
	ctx := context.Background()
	now := time.Now()

	ch := &domain.Challenge{Email: "user@example.com", Code: "123456", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, store.Put(ctx, ch))

	ok, err := store.Consume(ctx, "user@example.com", "123456", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expiry discovery evicted the record
	_, err = store.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
