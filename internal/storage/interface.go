package storage

import (
	"context"
	"errors"
	"time"

	"github.com/commercebridge/go-shop-backend/internal/domain"
)

// ErrNotFound is returned when no pending challenge exists for an email
var ErrNotFound = errors.New("not found")

// ChallengeStore holds at most one pending passcode challenge per
// normalized email. Implementations must be safe for concurrent use, and
// Consume must be atomic per key: two racing consumes of the same
// challenge may yield at most one true.
type ChallengeStore interface {
	// Put stores a challenge, unconditionally replacing any existing
	// challenge for the same email.
	Put(ctx context.Context, challenge *domain.Challenge) error

	// Get retrieves the pending challenge for an email.
	// Returns ErrNotFound when absent.
	Get(ctx context.Context, email string) (*domain.Challenge, error)

	// Delete removes the challenge for an email. Idempotent.
	Delete(ctx context.Context, email string) error

	// Consume applies the verification decision atomically:
	// absent -> false; expired -> deleted, false; code match -> deleted,
	// true; mismatch -> kept, false.
	Consume(ctx context.Context, email, code string, now time.Time) (bool, error)

	// DeleteExpired removes all expired challenges.
	DeleteExpired(ctx context.Context) error

	// Close releases resources.
	Close() error

	// Ping checks if the storage is alive.
	Ping(ctx context.Context) error
}
