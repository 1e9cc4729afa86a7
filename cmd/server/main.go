package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/api"
	"github.com/commercebridge/go-shop-backend/internal/backend"
	"github.com/commercebridge/go-shop-backend/internal/service"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
	"github.com/commercebridge/go-shop-backend/pkg/logging"
	"github.com/commercebridge/go-shop-backend/pkg/middleware"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Shop Backend Server",
		zap.String("version", version),
		zap.String("build_time", buildTime),
	)

	if cfg.Shopify.StorefrontToken == "" || cfg.Shopify.AdminToken == "" {
		logger.Warn("Shopify credentials incomplete, platform calls will fail",
			zap.Bool("storefront_token_set", cfg.Shopify.StorefrontToken != ""),
			zap.Bool("admin_token_set", cfg.Shopify.AdminToken != ""),
		)
	}
	if !cfg.SMTP.Configured() {
		logger.Warn("SMTP not configured, passcodes will be logged instead of mailed")
	}

	// Initialize storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	// Ping storage to verify connection
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping storage", zap.Error(err))
	}

	// Initialize services and background workers
	services := service.NewServices(store, cfg, logger)
	services.Start()
	defer services.Stop()

	router := setupRouter(cfg, services, store, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("address", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func setupRouter(cfg *config.Config, services *service.Services, store storage.ChallengeStore, logger *zap.Logger) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // TODO: Make configurable
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers := api.NewHandlers(services, store, cfg, logger)

	router.GET("/status", handlers.Status)
	router.GET("/health", handlers.Health)

	// Auth routes are unauthenticated but rate limited per email
	rateLimiter := middleware.NewAuthRateLimiter(cfg.RateLimit, logger)
	auth := router.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware(rateLimiter, middleware.ClientIPIdentifier))
	{
		auth.POST("/login", handlers.PasswordLogin)
		auth.POST("/otp/send", handlers.SendOTP)
		auth.POST("/otp/verify", handlers.VerifyOTP)
	}
	router.GET("/auth/me", middleware.AuthMiddleware(cfg, logger), handlers.Me)

	router.GET("/products", handlers.ListProducts)

	cart := router.Group("/cart")
	{
		cart.POST("/create", handlers.CreateCart)
		cart.GET("/customer/:customerId", handlers.GetCustomerCart)
		cart.POST("/lines/add", handlers.AddCartLines)
		cart.GET("/:cartId", handlers.GetCart)
	}

	return router
}
