package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/internal/storage/memory"
	"github.com/commercebridge/go-shop-backend/internal/storage/mongodb"
	"github.com/commercebridge/go-shop-backend/internal/storage/redisstore"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// New creates the challenge store selected by the configuration
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ChallengeStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.NewStore(), nil
	case "redis":
		return redisstore.NewStore(&cfg.Storage.Redis, logger)
	case "mongodb":
		return mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
