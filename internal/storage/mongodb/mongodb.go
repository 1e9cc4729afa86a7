// Package mongodb implements challenge storage on MongoDB, for
// deployments that want challenges to survive a process restart.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// Store implements challenge storage backed by MongoDB
type Store struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
}

// NewStore creates a new MongoDB-backed challenge store
func NewStore(ctx context.Context, cfg *config.MongoDBConfig) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(time.Duration(cfg.Timeout) * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	s := &Store{
		client:     client,
		database:   database,
		collection: database.Collection("otp_challenges"),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	// TTL index lets MongoDB reclaim abandoned challenges on its own
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (s *Store) Put(ctx context.Context, challenge *domain.Challenge) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": challenge.Email}, challenge, opts)
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*domain.Challenge, error) {
	var challenge domain.Challenge
	err := s.collection.FindOne(ctx, bson.M{"_id": email}).Decode(&challenge)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

func (s *Store) Delete(ctx context.Context, email string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": email})
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, email, code string, now time.Time) (bool, error) {
	// Conditional FindOneAndDelete makes check-then-delete a single
	// server-side operation, so racing duplicates cannot both succeed.
	err := s.collection.FindOneAndDelete(ctx, bson.M{
		"_id":        email,
		"code":       code,
		"expires_at": bson.M{"$gt": now},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}

	// No match. Evict the record if it sat there expired.
	_, delErr := s.collection.DeleteOne(ctx, bson.M{
		"_id":        email,
		"expires_at": bson.M{"$lte": now},
	})
	if delErr != nil {
		return false, fmt.Errorf("failed to evict expired challenge: %w", delErr)
	}
	return false, nil
}

func (s *Store) DeleteExpired(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}
