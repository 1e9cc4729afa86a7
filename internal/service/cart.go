package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commercebridge/go-shop-backend/internal/shopify"
)

var ErrCartNotLinked = errors.New("no active cart for customer")

// CartLine is one merchandise line in a cart mutation
type CartLine struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

const cartCreateMutation = `
    mutation cartCreate($input: CartInput) {
      cartCreate(input: $input) {
        cart {
          id
          checkoutUrl
          lines(first: 10) {
            edges {
              node {
                id
                quantity
                merchandise {
                  ... on ProductVariant {
                    id
                    title
                    price {
                        amount
                        currencyCode
                    }
                    product {
                        title
                        handle
                    }
                  }
                }
              }
            }
          }
          cost {
            totalAmount {
              amount
              currencyCode
            }
          }
        }
        userErrors {
          field
          message
        }
      }
    }
  `

const cartQuery = `
    query cart($id: ID!) {
      cart(id: $id) {
        id
        checkoutUrl
        lines(first: 20) {
          edges {
            node {
              id
              quantity
              merchandise {
                ... on ProductVariant {
                  id
                  title
                  image {
                    url
                    altText
                  }
                  price {
                    amount
                    currencyCode
                  }
                  product {
                    title
                    handle
                  }
                }
              }
            }
          }
        }
        cost {
          totalAmount {
            amount
            currencyCode
          }
          subtotalAmount {
            amount
            currencyCode
          }
        }
      }
    }
  `

const cartLinesAddMutation = `
    mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
      cartLinesAdd(cartId: $cartId, lines: $lines) {
        cart {
          id
          lines(first: 20) {
            edges {
              node {
                id
                quantity
                merchandise {
                  ... on ProductVariant {
                    id
                    title
                    price {
                        amount
                        currencyCode
                    }
                    product {
                        title
                        handle
                    }
                  }
                }
              }
            }
          }
          cost {
            totalAmount {
              amount
              currencyCode
            }
          }
        }
        userErrors {
          field
          message
        }
      }
    }
  `

// cartPayload is the shared cart/userErrors mutation result shape
type cartPayload struct {
	Cart       json.RawMessage     `json:"cart"`
	UserErrors []shopify.UserError `json:"userErrors"`
}

// CartService drives cart lifecycle through the Storefront API and keeps
// the customer's active-cart pointer in sync.
type CartService struct {
	storefront StorefrontAPI
	pointers   CartPointerStore
	logger     *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(storefront StorefrontAPI, pointers CartPointerStore, logger *zap.Logger) *CartService {
	return &CartService{
		storefront: storefront,
		pointers:   pointers,
		logger:     logger.Named("cart-service"),
	}
}

// Create creates a new cart, optionally seeded with lines. When a
// customer ID is supplied the new cart is linked to the customer in the
// background; linkage failure never affects the response.
func (s *CartService) Create(ctx context.Context, lines []CartLine, customerID string) (json.RawMessage, []shopify.UserError, error) {
	input := map[string]any{}
	if len(lines) > 0 {
		input["lines"] = lines
	}

	data, err := s.storefront.Query(ctx, cartCreateMutation, map[string]any{"input": input})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cart: %w", err)
	}

	var payload struct {
		CartCreate cartPayload `json:"cartCreate"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode cart payload: %w", err)
	}
	if len(payload.CartCreate.UserErrors) > 0 {
		return nil, payload.CartCreate.UserErrors, nil
	}

	if customerID != "" {
		if cartID := extractCartID(payload.CartCreate.Cart); cartID != "" {
			go s.linkCart(customerID, cartID)
		}
	}

	return payload.CartCreate.Cart, nil, nil
}

// linkCart persists the cart pointer in the background
func (s *CartService) linkCart(customerID, cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.pointers.SetActiveCartID(ctx, customerID, cartID); err != nil {
		s.logger.Error("Background cart linkage failed",
			zap.String("customer_id", customerID),
			zap.String("cart_id", cartID),
			zap.Error(err),
		)
	}
}

// Get fetches a cart by ID
func (s *CartService) Get(ctx context.Context, cartID string) (json.RawMessage, error) {
	data, err := s.storefront.Query(ctx, cartQuery, map[string]any{"id": cartID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	var payload struct {
		Cart json.RawMessage `json:"cart"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode cart payload: %w", err)
	}
	return payload.Cart, nil
}

// AddLines adds merchandise lines to an existing cart
func (s *CartService) AddLines(ctx context.Context, cartID string, lines []CartLine) (json.RawMessage, []shopify.UserError, error) {
	data, err := s.storefront.Query(ctx, cartLinesAddMutation, map[string]any{
		"cartId": cartID,
		"lines":  lines,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to add cart lines: %w", err)
	}

	var payload struct {
		CartLinesAdd cartPayload `json:"cartLinesAdd"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode cart payload: %w", err)
	}
	if len(payload.CartLinesAdd.UserErrors) > 0 {
		return nil, payload.CartLinesAdd.UserErrors, nil
	}
	return payload.CartLinesAdd.Cart, nil, nil
}

// CustomerCart returns the customer's active-cart pointer.
// Returns ErrCartNotLinked when no pointer is set.
func (s *CartService) CustomerCart(ctx context.Context, customerID string) (string, error) {
	cartID, err := s.pointers.GetActiveCartID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch cart pointer: %w", err)
	}
	if cartID == "" {
		return "", ErrCartNotLinked
	}
	return cartID, nil
}

// extractCartID pulls the id field out of a raw cart payload
func extractCartID(cart json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(cart, &probe); err != nil {
		return ""
	}
	return probe.ID
}
