// Package memory implements in-memory challenge storage. Challenges are
// lost on restart, which is acceptable: passcodes are short-lived and
// re-issuable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/storage"
)

// Store implements an in-memory challenge store guarded by a mutex.
// The single lock keeps the check-then-delete in Consume atomic, which
// is what upholds single-use under concurrent duplicate submissions.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Challenge
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string]*domain.Challenge)}
}

func (s *Store) Put(ctx context.Context, challenge *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[challenge.Email] = challenge
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, exists := s.data[email]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return challenge, nil
}

func (s *Store) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, email)
	return nil
}

func (s *Store) Consume(ctx context.Context, email, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, exists := s.data[email]
	if !exists {
		return false, nil
	}

	if challenge.Expired(now) {
		delete(s.data, email)
		return false, nil
	}

	if challenge.Code != code {
		// Wrong code leaves the challenge intact so the customer can
		// retry until expiry.
		return false, nil
	}

	delete(s.data, email)
	return true, nil
}

func (s *Store) DeleteExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for email, challenge := range s.data {
		if challenge.Expired(now) {
			delete(s.data, email)
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return nil }
