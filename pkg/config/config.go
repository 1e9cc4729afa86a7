package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	JWT       JWTConfig       `yaml:"jwt" envconfig:"JWT"`
	Shopify   ShopifyConfig   `yaml:"shopify" envconfig:"SHOPIFY"`
	SMTP      SMTPConfig      `yaml:"smtp" envconfig:"SMTP"`
	OTP       OTPConfig       `yaml:"otp" envconfig:"OTP"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

// StorageConfig contains challenge storage configuration
type StorageConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, redis, mongodb
	Redis   RedisConfig   `yaml:"redis" envconfig:"REDIS"`
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Address   string `yaml:"address" envconfig:"ADDRESS"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string `yaml:"uri" envconfig:"URI"`
	Database string `yaml:"database" envconfig:"DATABASE"`
	Timeout  int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// JWTConfig contains session token configuration
type JWTConfig struct {
	Secret      string `yaml:"secret" envconfig:"SECRET"`
	ExpiryHours int    `yaml:"expiry_hours" envconfig:"EXPIRY_HOURS"`
	Issuer      string `yaml:"issuer" envconfig:"ISSUER"`
}

// ShopifyConfig contains credentials for the Storefront and Admin APIs
type ShopifyConfig struct {
	// ShopDomain is the myshopify domain, e.g. "example.myshopify.com"
	ShopDomain string `yaml:"shop_domain" envconfig:"SHOP_DOMAIN"`
	// APIVersion is the Shopify API version, e.g. "2024-01"
	APIVersion string `yaml:"api_version" envconfig:"API_VERSION"`
	// StorefrontToken authenticates public, customer-scoped GraphQL calls
	StorefrontToken string `yaml:"storefront_token" envconfig:"STOREFRONT_TOKEN"`
	// AdminToken authenticates privileged Admin API calls
	AdminToken string `yaml:"admin_token" envconfig:"ADMIN_TOKEN"`
	// Timeout is the HTTP timeout for upstream calls (seconds)
	Timeout int `yaml:"timeout" envconfig:"TIMEOUT"`
}

// SMTPConfig contains outbound mail configuration for OTP delivery
type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	From     string `yaml:"from" envconfig:"FROM"`
	FromName string `yaml:"from_name" envconfig:"FROM_NAME"`
}

// Configured reports whether enough SMTP settings are present to send mail
func (c *SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// OTPConfig contains passcode lifecycle configuration
type OTPConfig struct {
	// TTLSeconds is how long an issued passcode stays valid
	TTLSeconds int `yaml:"ttl_seconds" envconfig:"TTL_SECONDS"`
	// CleanupEnabled turns the background expired-challenge sweeper on
	CleanupEnabled bool `yaml:"cleanup_enabled" envconfig:"CLEANUP_ENABLED"`
	// CleanupIntervalSeconds is the sweep interval
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds" envconfig:"CLEANUP_INTERVAL_SECONDS"`
}

// RateLimitConfig contains rate limiting for the OTP endpoints
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxAttempts    int  `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	WindowSeconds  int  `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	LockoutSeconds int  `yaml:"lockout_seconds" envconfig:"LOCKOUT_SECONDS"`
}

// SetDefaults fills in zero values with sensible defaults
func (c *RateLimitConfig) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.WindowSeconds == 0 {
		c.WindowSeconds = 60
	}
	if c.LockoutSeconds == 0 {
		c.LockoutSeconds = 300
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("SHOPBFF", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "otp:",
			},
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "shopbff",
				Timeout:  10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			ExpiryHours: 168, // 7 days
			Issuer:      "shop-backend",
		},
		Shopify: ShopifyConfig{
			APIVersion: "2024-01",
			Timeout:    30,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		OTP: OTPConfig{
			TTLSeconds:             300, // 5 minutes
			CleanupEnabled:         true,
			CleanupIntervalSeconds: 60,
		},
	}
}

// Validate validates the configuration.
// A missing JWT secret is a hard failure: falling back to a well-known
// default would let anyone forge session tokens.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Type != "memory" && c.Storage.Type != "redis" && c.Storage.Type != "mongodb" {
		return fmt.Errorf("invalid storage type: %s (must be memory, redis, or mongodb)", c.Storage.Type)
	}

	if c.Storage.Type == "mongodb" && c.Storage.MongoDB.URI == "" {
		return fmt.Errorf("mongodb uri is required when using mongodb storage")
	}

	if c.Storage.Type == "redis" && c.Storage.Redis.Address == "" {
		return fmt.Errorf("redis address is required when using redis storage")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	if c.OTP.TTLSeconds < 1 {
		return fmt.Errorf("otp ttl must be positive")
	}

	return nil
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorefrontURL returns the Storefront GraphQL endpoint
func (c *ShopifyConfig) StorefrontURL() string {
	return fmt.Sprintf("https://%s/api/%s/graphql.json", c.ShopDomain, c.APIVersion)
}

// AdminBaseURL returns the Admin REST API base URL
func (c *ShopifyConfig) AdminBaseURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s", c.ShopDomain, c.APIVersion)
}
