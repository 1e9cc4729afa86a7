package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const productsQuery = `
    query products($first: Int!) {
      products(first: $first) {
        edges {
          node {
            id
            title
            description
          }
        }
      }
    }
  `

// ProductService lists catalog products through the Storefront API
type ProductService struct {
	storefront StorefrontAPI
	logger     *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(storefront StorefrontAPI, logger *zap.Logger) *ProductService {
	return &ProductService{
		storefront: storefront,
		logger:     logger.Named("product-service"),
	}
}

// List returns the first N product edges
func (s *ProductService) List(ctx context.Context, first int) (json.RawMessage, error) {
	if first < 1 {
		first = 10
	}

	data, err := s.storefront.Query(ctx, productsQuery, map[string]any{"first": first})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var payload struct {
		Products struct {
			Edges json.RawMessage `json:"edges"`
		} `json:"products"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode products payload: %w", err)
	}
	return payload.Products.Edges, nil
}
