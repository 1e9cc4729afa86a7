package service

import (
	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/mail"
	"github.com/commercebridge/go-shop-backend/internal/shopify"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// Services aggregates all application services
type Services struct {
	OTP              *OTPService
	Auth             *AuthService
	Cart             *CartService
	Product          *ProductService
	ChallengeCleanup *ChallengeCleanupWorker
}

// NewServices creates a new Services instance
func NewServices(store storage.ChallengeStore, cfg *config.Config, logger *zap.Logger) *Services {
	storefront := shopify.NewStorefrontClient(&cfg.Shopify, logger)
	admin := shopify.NewAdminClient(&cfg.Shopify, logger)

	var sender mail.Sender
	if cfg.SMTP.Configured() {
		sender = mail.NewSMTPSender(cfg.SMTP, logger)
	} else {
		sender = mail.NewLogSender(logger)
	}

	otp := NewOTPService(store, sender, cfg, logger)

	return &Services{
		OTP:              otp,
		Auth:             NewAuthService(otp, admin, admin, storefront, cfg, logger),
		Cart:             NewCartService(storefront, admin, logger),
		Product:          NewProductService(storefront, logger),
		ChallengeCleanup: NewChallengeCleanupWorker(cfg.OTP, store, logger),
	}
}

// Start starts background workers
func (s *Services) Start() {
	if s.ChallengeCleanup != nil {
		s.ChallengeCleanup.Start()
	}
}

// Stop gracefully stops background workers
func (s *Services) Stop() {
	if s.ChallengeCleanup != nil {
		s.ChallengeCleanup.Stop()
	}
}
