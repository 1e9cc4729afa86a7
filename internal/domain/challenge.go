package domain

import (
	"strings"
	"time"
)

// Challenge is a pending one-time passcode awaiting verification.
// At most one challenge exists per normalized email; issuing a new one
// replaces the old.
type Challenge struct {
	// Email is the normalized identity key (lower-cased, trimmed)
	Email string `json:"email" bson:"_id"`
	// Code is the 6-digit passcode the customer must present
	Code string `json:"code" bson:"code"`
	// ExpiresAt is the absolute expiry time
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// Expired reports whether the challenge has passed its expiry at the
// given instant
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NormalizeEmail applies the canonical identity-key transform. Issue and
// verify must use the same transform or verification spuriously fails.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
