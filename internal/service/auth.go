package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

var ErrLoginFailed = errors.New("login failed")

// CustomerDirectory resolves and provisions customer identities
type CustomerDirectory interface {
	// FindCustomerByEmail returns nil when no customer matches
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)

	// CreateCustomer provisions a new customer for a verified email
	CreateCustomer(ctx context.Context, email string) (*domain.Customer, error)
}

// CartPointerStore reads and writes the customer's active-cart pointer
type CartPointerStore interface {
	GetActiveCartID(ctx context.Context, customerID string) (string, error)
	SetActiveCartID(ctx context.Context, customerID, cartID string) error
}

// StorefrontAPI executes GraphQL against the Storefront API
type StorefrontAPI interface {
	Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// AuthService composes passcode verification, identity resolution and
// session issuance into the login flow.
type AuthService struct {
	otp        *OTPService
	directory  CustomerDirectory
	carts      CartPointerStore
	storefront StorefrontAPI
	cfg        *config.Config
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(otp *OTPService, directory CustomerDirectory, carts CartPointerStore, storefront StorefrontAPI, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		otp:        otp,
		directory:  directory,
		carts:      carts,
		storefront: storefront,
		cfg:        cfg,
		logger:     logger.Named("auth-service"),
	}
}

// LoginWithOTP verifies the passcode and, on success, resolves the
// customer (auto-provisioning unknown but verified emails), mints a
// session token and attaches the active-cart pointer best-effort.
func (s *AuthService) LoginWithOTP(ctx context.Context, rawEmail, code string) (*domain.LoginResult, error) {
	ok, err := s.otp.Verify(ctx, rawEmail, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	email := domain.NormalizeEmail(rawEmail)

	customer, err := s.directory.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	if customer == nil {
		// Unknown but OTP-verified identities are provisioned, not
		// rejected.
		s.logger.Info("Customer not found, provisioning", zap.String("email", email))
		customer, err = s.directory.CreateCustomer(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("customer creation failed: %w", err)
		}
	}

	token, err := s.generateToken(customer)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	summary := domain.CustomerSummary{
		ID:        customer.ID,
		Email:     customer.Email,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
	}

	// Cart linkage must never fail or delay the login response
	cartID, err := s.carts.GetActiveCartID(ctx, customer.ID)
	if err != nil {
		s.logger.Warn("Cart pointer lookup failed",
			zap.String("customer_id", customer.ID),
			zap.Error(err),
		)
	} else {
		summary.ActiveCartID = cartID
	}

	s.logger.Info("Customer logged in", zap.String("customer_id", customer.ID))
	return &domain.LoginResult{Token: token, Customer: summary}, nil
}

// PasswordLogin passes email/password credentials through to the
// Storefront customerAccessTokenCreate mutation. The platform owns
// password verification; this service never sees a password hash.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (json.RawMessage, error) {
	const mutation = `
    mutation customerAccessTokenCreate($input: CustomerAccessTokenCreateInput!) {
      customerAccessTokenCreate(input: $input) {
        customerAccessToken {
          accessToken
          expiresAt
        }
        customerUserErrors {
          message
        }
      }
    }
  `

	data, err := s.storefront.Query(ctx, mutation, map[string]any{
		"input": map[string]any{"email": email, "password": password},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	var payload struct {
		CustomerAccessTokenCreate json.RawMessage `json:"customerAccessTokenCreate"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	return payload.CustomerAccessTokenCreate, nil
}

func (s *AuthService) generateToken(customer *domain.Customer) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"customer_id": customer.ID,
		"email":       customer.Email,
		"iss":         s.cfg.JWT.Issuer,
		"exp":         now.Add(time.Duration(s.cfg.JWT.ExpiryHours) * time.Hour).Unix(),
		"iat":         now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}
