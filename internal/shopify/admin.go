package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/domain"
	"github.com/commercebridge/go-shop-backend/pkg/config"
)

const (
	cartMetafieldNamespace = "custom"
	cartMetafieldKey       = "active_cart_id"
)

// AdminClient calls the privileged Admin REST API. It serves as both
// the customer directory (find/create) and the cart pointer store
// (customer metafield read/write).
type AdminClient struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

// NewAdminClient creates a new Admin API client
func NewAdminClient(cfg *config.ShopifyConfig, logger *zap.Logger) *AdminClient {
	return &AdminClient{
		client:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		baseURL: cfg.AdminBaseURL(),
		token:   cfg.AdminToken,
		logger:  logger.Named("admin-client"),
	}
}

// adminCustomer is the Admin REST customer shape. IDs come back numeric.
type adminCustomer struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
}

func (c adminCustomer) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:        c.ID.String(),
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

func (c *AdminClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("admin request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("admin request failed: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode admin response: %w", err)
		}
	}
	return nil
}

// FindCustomerByEmail looks up a customer by email. Returns nil when no
// customer matches. Upstream failures are logged and reported as absent
// so the caller can fall through to auto-provisioning.
func (c *AdminClient) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	path := "/customers/search.json?query=" + url.QueryEscape("email:"+email)

	var result struct {
		Customers []adminCustomer `json:"customers"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		c.logger.Error("Customer search failed", zap.Error(err))
		return nil, nil
	}

	if len(result.Customers) == 0 {
		return nil, nil
	}
	return result.Customers[0].toDomain(), nil
}

// CreateCustomer provisions a new customer record for an email that has
// already proven mailbox control, so the address is marked verified and
// no welcome mail is triggered.
func (c *AdminClient) CreateCustomer(ctx context.Context, email string) (*domain.Customer, error) {
	body := map[string]any{
		"customer": map[string]any{
			"email":              email,
			"verified_email":     true,
			"send_email_welcome": false,
		},
	}

	var result struct {
		Customer adminCustomer `json:"customer"`
	}
	if err := c.do(ctx, http.MethodPost, "/customers.json", body, &result); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return result.Customer.toDomain(), nil
}

// GetActiveCartID reads the customer's cart pointer metafield. Absence
// and upstream failure both read back as empty: the pointer is
// best-effort state and must never fail a login.
func (c *AdminClient) GetActiveCartID(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}
	numericID := domain.NumericID(customerID)
	path := fmt.Sprintf("/customers/%s/metafields.json?namespace=%s&key=%s",
		numericID, cartMetafieldNamespace, cartMetafieldKey)

	var result struct {
		Metafields []struct {
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
			Value     string `json:"value"`
		} `json:"metafields"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		c.logger.Error("Cart pointer fetch failed", zap.String("customer_id", numericID), zap.Error(err))
		return "", nil
	}

	for _, m := range result.Metafields {
		if m.Namespace == cartMetafieldNamespace && m.Key == cartMetafieldKey {
			return m.Value, nil
		}
	}
	return "", nil
}

// SetActiveCartID writes the customer's cart pointer metafield
func (c *AdminClient) SetActiveCartID(ctx context.Context, customerID, cartID string) error {
	if customerID == "" || cartID == "" {
		return nil
	}
	numericID := domain.NumericID(customerID)

	body := map[string]any{
		"customer": map[string]any{
			"id": numericID,
			"metafields": []map[string]any{
				{
					"namespace": cartMetafieldNamespace,
					"key":       cartMetafieldKey,
					"value":     cartID,
					"type":      "single_line_text_field",
				},
			},
		},
	}

	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/customers/%s.json", numericID), body, nil); err != nil {
		return fmt.Errorf("failed to update cart pointer: %w", err)
	}

	c.logger.Debug("Cart pointer updated",
		zap.String("customer_id", numericID),
		zap.String("cart_id", cartID),
	)
	return nil
}
