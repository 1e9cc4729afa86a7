// Package shopify contains HTTP clients for the commerce platform's
// Storefront (public, customer-scoped) and Admin (privileged) APIs.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/pkg/config"
)

// UserError is a user-facing validation error returned inside a
// GraphQL mutation payload
type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// StorefrontClient executes GraphQL queries against the Storefront API
type StorefrontClient struct {
	client *http.Client
	url    string
	token  string
	logger *zap.Logger
}

// NewStorefrontClient creates a new Storefront API client
func NewStorefrontClient(cfg *config.ShopifyConfig, logger *zap.Logger) *StorefrontClient {
	return &StorefrontClient{
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		url:    cfg.StorefrontURL(),
		token:  cfg.StorefrontToken,
		logger: logger.Named("storefront-client"),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// Query executes a GraphQL query or mutation and returns the raw data
// payload. Top-level GraphQL errors are surfaced as a single error;
// mutation-level userErrors are left in the payload for the caller.
func (c *StorefrontClient) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storefront request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storefront request failed: status %d", resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("failed to decode storefront response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		c.logger.Error("Storefront API returned errors", zap.Strings("errors", messages))
		return nil, fmt.Errorf("storefront api errors: %s", strings.Join(messages, "; "))
	}

	return gqlResp.Data, nil
}
