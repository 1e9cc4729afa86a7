// Package redisstore implements challenge storage on Redis. Expiry is
// delegated to Redis key TTLs, so expired challenges read back as absent
// without any sweeping on our side.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// consumeScript compares the stored code and deletes the key in one
// atomic step. This is what upholds single-use when duplicate verify
// requests race.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false then return 0 end
if v == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// Store implements challenge storage backed by Redis
type Store struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewStore creates a new Redis-backed challenge store
func NewStore(cfg *config.RedisConfig, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "otp:"
	}

	return &Store{
		client:    client,
		keyPrefix: prefix,
		logger:    logger.Named("redis-store"),
	}, nil
}

func (s *Store) key(email string) string {
	return s.keyPrefix + email
}

func (s *Store) Put(ctx context.Context, challenge *domain.Challenge) error {
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		// Already expired, equivalent to absent
		return s.Delete(ctx, challenge.Email)
	}

	// SET replaces any prior challenge for the same email
	if err := s.client.Set(ctx, s.key(challenge.Email), challenge.Code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*domain.Challenge, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.key(email))
	ttlCmd := pipe.PTTL(ctx, s.key(email))

	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	code, err := getCmd.Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge ttl: %w", err)
	}

	return &domain.Challenge{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (s *Store) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, email, code string, now time.Time) (bool, error) {
	// Redis TTL already reclaimed expired keys, so the absent and
	// expired branches collapse into one.
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(email)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}
	return n == 1, nil
}

func (s *Store) DeleteExpired(ctx context.Context) error {
	// Key TTLs handle expiry
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
