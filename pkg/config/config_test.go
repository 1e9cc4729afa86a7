package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = "test-secret"
	return cfg
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SHOPBFF_JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected default storage type memory, got %s", cfg.Storage.Type)
	}
	if cfg.OTP.TTLSeconds != 300 {
		t.Errorf("expected default otp ttl 300, got %d", cfg.OTP.TTLSeconds)
	}
	if cfg.JWT.ExpiryHours != 168 {
		t.Errorf("expected default jwt expiry 168h, got %d", cfg.JWT.ExpiryHours)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("expected env secret to apply, got %q", cfg.JWT.Secret)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	yaml := `
server:
  port: 9090
jwt:
  secret: file-secret
shopify:
  shop_domain: example.myshopify.com
  storefront_token: sf-token
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "file-secret" {
		t.Errorf("expected file secret, got %q", cfg.JWT.Secret)
	}
	if cfg.Shopify.ShopDomain != "example.myshopify.com" {
		t.Errorf("shop domain not loaded: %q", cfg.Shopify.ShopDomain)
	}
	// Defaults survive partial files
	if cfg.Shopify.APIVersion != "2024-01" {
		t.Errorf("expected default api version, got %q", cfg.Shopify.APIVersion)
	}
}

func TestValidate_RequiresJWTSecret(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing jwt secret")
	}
}

func TestValidate_StorageType(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Type = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown storage type")
	}
}

func TestValidate_MongoRequiresURI(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Type = "mongodb"
	cfg.Storage.MongoDB.URI = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing mongodb uri")
	}
}

func TestValidate_OTPTTL(t *testing.T) {
	cfg := validConfig()
	cfg.OTP.TTLSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero otp ttl")
	}
}

func TestShopifyURLs(t *testing.T) {
	cfg := ShopifyConfig{ShopDomain: "demo.myshopify.com", APIVersion: "2024-01"}

	if got := cfg.StorefrontURL(); got != "https://demo.myshopify.com/api/2024-01/graphql.json" {
		t.Errorf("StorefrontURL() = %q", got)
	}
	if got := cfg.AdminBaseURL(); got != "https://demo.myshopify.com/admin/api/2024-01" {
		t.Errorf("AdminBaseURL() = %q", got)
	}
}

func TestSMTPConfigured(t *testing.T) {
	cfg := SMTPConfig{}
	if cfg.Configured() {
		t.Error("empty smtp config should not be configured")
	}

	cfg = SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p"}
	if !cfg.Configured() {
		t.Error("expected configured smtp")
	}
}
