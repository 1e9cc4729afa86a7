package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/service"
	"github.com/commercebridge/go-shop-backend/internal/storage"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	services *service.Services
	store    storage.ChallengeStore
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services *service.Services, store storage.ChallengeStore, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		services: services,
		store:    store,
		cfg:      cfg,
		logger:   logger.Named("handlers"),
	}
}

// flexString accepts either a JSON string or a JSON number. Mobile
// clients tend to send the passcode as a number when the input field is
// numeric.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a string or number")
	}
	*f = flexString(n.String())
	return nil
}

// Status handles the /status endpoint
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "shop-backend",
	})
}

// Health reports whether the challenge store is reachable
func (h *Handlers) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		c.JSON(503, gin.H{"status": "unhealthy", "error": "storage unreachable"})
		return
	}
	c.JSON(200, gin.H{"status": "healthy"})
}

// SendOTP issues a fresh passcode for the submitted email
func (h *Handlers) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(400, gin.H{"error": "Email is required"})
		return
	}

	if _, err := h.services.OTP.RequestChallenge(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrEmailRequired) {
			c.JSON(400, gin.H{"error": "Email is required"})
			return
		}
		h.logger.Error("Failed to issue passcode", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to send OTP"})
		return
	}

	resp := gin.H{"message": "OTP sent successfully"}
	if !h.cfg.SMTP.Configured() {
		resp["dev_note"] = "Check server console for OTP"
	}
	c.JSON(200, resp)
}

// VerifyOTP verifies the submitted passcode and completes the login
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string     `json:"email"`
		OTP   flexString `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.OTP == "" {
		c.JSON(400, gin.H{"error": "Email and OTP are required"})
		return
	}

	result, err := h.services.Auth.LoginWithOTP(c.Request.Context(), req.Email, string(req.OTP))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOTP) {
			c.JSON(401, gin.H{"error": "Invalid or expired OTP"})
			return
		}
		h.logger.Error("OTP login failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Login failed during customer lookup"})
		return
	}

	c.JSON(200, gin.H{
		"message":  "Login successful",
		"token":    result.Token,
		"customer": result.Customer,
	})
}

// PasswordLogin passes credentials through to the Storefront API
func (h *Handlers) PasswordLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Email and password are required"})
		return
	}

	payload, err := h.services.Auth.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("Password login failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Login failed"})
		return
	}

	c.Data(200, "application/json", payload)
}

// Me returns the identity carried by the session token
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(200, gin.H{
		"customer": gin.H{
			"id":    c.GetString("customer_id"),
			"email": c.GetString("email"),
		},
	})
}

// ListProducts returns the first page of catalog products
func (h *Handlers) ListProducts(c *gin.Context) {
	first := 10
	if raw := c.Query("first"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			first = n
		}
	}

	edges, err := h.services.Product.List(c.Request.Context(), first)
	if err != nil {
		h.logger.Error("Product listing failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Shopify error"})
		return
	}

	c.Data(200, "application/json", edges)
}

// CreateCart creates a new cart, optionally seeded with lines and
// linked to a customer
func (h *Handlers) CreateCart(c *gin.Context) {
	var req struct {
		Lines      []service.CartLine `json:"lines"`
		CustomerID string             `json:"customerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}

	cart, userErrors, err := h.services.Cart.Create(c.Request.Context(), req.Lines, req.CustomerID)
	if err != nil {
		h.logger.Error("Cart creation failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create cart"})
		return
	}
	if len(userErrors) > 0 {
		c.JSON(400, gin.H{"errors": userErrors})
		return
	}

	c.Data(200, "application/json", cart)
}

// GetCustomerCart returns the active cart pointer for a customer
func (h *Handlers) GetCustomerCart(c *gin.Context) {
	customerID := c.Param("customerId")

	cartID, err := h.services.Cart.CustomerCart(c.Request.Context(), customerID)
	if err != nil {
		if errors.Is(err, service.ErrCartNotLinked) {
			c.JSON(404, gin.H{"message": "No active cart found for this customer"})
			return
		}
		h.logger.Error("Cart pointer lookup failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch customer cart"})
		return
	}

	c.JSON(200, gin.H{"cartId": cartID})
}

// GetCart fetches an existing cart by ID
func (h *Handlers) GetCart(c *gin.Context) {
	// Cart IDs are GIDs and arrive URL-encoded
	cartID := c.Param("cartId")
	if decoded, err := url.QueryUnescape(cartID); err == nil {
		cartID = decoded
	}

	cart, err := h.services.Cart.Get(c.Request.Context(), cartID)
	if err != nil {
		h.logger.Error("Cart fetch failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to fetch cart"})
		return
	}
	if len(cart) == 0 || string(cart) == "null" {
		c.JSON(404, gin.H{"error": "Cart not found"})
		return
	}

	c.Data(200, "application/json", cart)
}

// AddCartLines adds merchandise lines to an existing cart
func (h *Handlers) AddCartLines(c *gin.Context) {
	var req struct {
		CartID string             `json:"cartId"`
		Lines  []service.CartLine `json:"lines"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CartID == "" || len(req.Lines) == 0 {
		c.JSON(400, gin.H{"error": "cartId and lines are required"})
		return
	}

	cart, userErrors, err := h.services.Cart.AddLines(c.Request.Context(), req.CartID, req.Lines)
	if err != nil {
		h.logger.Error("Cart line add failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to add items to cart"})
		return
	}
	if len(userErrors) > 0 {
		c.JSON(400, gin.H{"errors": userErrors})
		return
	}

	c.Data(200, "application/json", cart)
}
