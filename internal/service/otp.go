package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/internal/mail"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrInvalidOTP    = errors.New("invalid or expired passcode")
)

const sendTimeout = 10 * time.Second

// OTPService issues and verifies one-time passcodes. The passcode is the
// gate between "someone who can read mail at this address" and a
// resolved login, so all state transitions go through the challenge
// store's atomic operations.
type OTPService struct {
	store  storage.ChallengeStore
	sender mail.Sender
	logger *zap.Logger
	ttl    time.Duration

	// now is injectable for deterministic expiry tests
	now func() time.Time
}

// NewOTPService creates a new OTPService
func NewOTPService(store storage.ChallengeStore, sender mail.Sender, cfg *config.Config, logger *zap.Logger) *OTPService {
	return &OTPService{
		store:  store,
		sender: sender,
		logger: logger.Named("otp-service"),
		ttl:    time.Duration(cfg.OTP.TTLSeconds) * time.Second,
		now:    time.Now,
	}
}

// RequestChallenge generates a fresh passcode for the email, stores it
// (replacing any pending challenge for the same address) and dispatches
// delivery in the background. The returned code is for logging and
// test visibility; it must never reach a client-facing response.
//
// Delivery is fire-and-forget: once the challenge is stored the request
// has succeeded, and a provider outage must not read as a login failure.
func (s *OTPService) RequestChallenge(ctx context.Context, rawEmail string) (string, error) {
	email := domain.NormalizeEmail(rawEmail)
	if email == "" {
		return "", ErrEmailRequired
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}

	challenge := &domain.Challenge{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	s.logger.Info("Passcode issued", zap.String("email", email))

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := s.sender.Send(sendCtx, email, code); err != nil {
			s.logger.Error("Passcode delivery failed",
				zap.String("email", email),
				zap.Error(err),
			)
		}
	}()

	return code, nil
}

// Verify checks a submitted passcode against the pending challenge.
// A matching code consumes the challenge (single use); a wrong code
// leaves it intact for retry; an expired challenge is evicted on
// discovery. The same normalization as issuance applies, and the code
// is trimmed so numeric transport values compare correctly.
func (s *OTPService) Verify(ctx context.Context, rawEmail, rawCode string) (bool, error) {
	email := domain.NormalizeEmail(rawEmail)
	code := strings.TrimSpace(rawCode)
	if email == "" || code == "" {
		return false, nil
	}

	ok, err := s.store.Consume(ctx, email, code, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to verify passcode: %w", err)
	}

	if ok {
		s.logger.Info("Passcode verified", zap.String("email", email))
	} else {
		s.logger.Info("Passcode rejected", zap.String("email", email))
	}
	return ok, nil
}

// generateCode returns a uniformly random 6-digit code in
// [100000, 999999]
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
