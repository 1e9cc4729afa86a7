package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCartService_Create(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"cartCreate": {
			"cart": {"id": "gid://shopify/Cart/abc", "checkoutUrl": "https://shop/checkout"},
			"userErrors": []
		}
	}`)}
	pointers := newFakeCartPointers()
	svc := NewCartService(front, pointers, zap.NewNop())

	cart, userErrors, err := svc.Create(context.Background(), []CartLine{
		{MerchandiseID: "gid://shopify/ProductVariant/1", Quantity: 2},
	}, "")
	require.NoError(t, err)
	assert.Empty(t, userErrors)

	assert.Equal(t, "gid://shopify/Cart/abc", extractCartID(cart))

	input := front.lastVars["input"].(map[string]any)
	lines := input["lines"].([]CartLine)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCartService_CreateLinksCustomerCart(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"cartCreate": {
			"cart": {"id": "gid://shopify/Cart/abc"},
			"userErrors": []
		}
	}`)}
	pointers := newFakeCartPointers()
	svc := NewCartService(front, pointers, zap.NewNop())

	_, _, err := svc.Create(context.Background(), nil, "gid://shopify/Customer/123")
	require.NoError(t, err)

	// Pointer write runs in the background
	require.Eventually(t, func() bool {
		return pointers.pointer("gid://shopify/Customer/123") == "gid://shopify/Cart/abc"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCartService_CreateUserErrors(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"cartCreate": {
			"cart": null,
			"userErrors": [{"field": ["lines"], "message": "Invalid merchandise"}]
		}
	}`)}
	svc := NewCartService(front, newFakeCartPointers(), zap.NewNop())

	cart, userErrors, err := svc.Create(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Nil(t, cart)
	require.Len(t, userErrors, 1)
	assert.Equal(t, "Invalid merchandise", userErrors[0].Message)
}

func TestCartService_Get(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"cart": {"id": "gid://shopify/Cart/abc", "checkoutUrl": "https://shop/checkout"}
	}`)}
	svc := NewCartService(front, newFakeCartPointers(), zap.NewNop())

	cart, err := svc.Get(context.Background(), "gid://shopify/Cart/abc")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Cart/abc", extractCartID(cart))
	assert.Equal(t, "gid://shopify/Cart/abc", front.lastVars["id"])
}

func TestCartService_AddLines(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"cartLinesAdd": {
			"cart": {"id": "gid://shopify/Cart/abc"},
			"userErrors": []
		}
	}`)}
	svc := NewCartService(front, newFakeCartPointers(), zap.NewNop())

	cart, userErrors, err := svc.AddLines(context.Background(), "gid://shopify/Cart/abc", []CartLine{
		{MerchandiseID: "gid://shopify/ProductVariant/1", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, userErrors)
	assert.NotNil(t, cart)
	assert.Equal(t, "gid://shopify/Cart/abc", front.lastVars["cartId"])
}

func TestCartService_CustomerCart(t *testing.T) {
	pointers := newFakeCartPointers()
	pointers.pointers["123"] = "gid://shopify/Cart/abc"
	svc := NewCartService(&fakeStorefront{}, pointers, zap.NewNop())

	cartID, err := svc.CustomerCart(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Cart/abc", cartID)
}

func TestCartService_CustomerCartAbsent(t *testing.T) {
	svc := NewCartService(&fakeStorefront{}, newFakeCartPointers(), zap.NewNop())

	_, err := svc.CustomerCart(context.Background(), "123")
	assert.ErrorIs(t, err, ErrCartNotLinked)
}

func TestCartService_UpstreamFailure(t *testing.T) {
	front := &fakeStorefront{err: errors.New("storefront down")}
	svc := NewCartService(front, newFakeCartPointers(), zap.NewNop())

	_, _, err := svc.Create(context.Background(), nil, "")
	assert.Error(t, err)

	_, err = svc.Get(context.Background(), "gid://shopify/Cart/abc")
	assert.Error(t, err)
}

func TestProductService_List(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{
		"products": {
			"edges": [
				{"node": {"id": "gid://shopify/Product/1", "title": "Widget", "description": "A widget"}}
			]
		}
	}`)}
	svc := NewProductService(front, zap.NewNop())

	edges, err := svc.List(context.Background(), 10)
	require.NoError(t, err)

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(edges, &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, 10, front.lastVars["first"])
}

func TestProductService_ListDefaultsPageSize(t *testing.T) {
	front := &fakeStorefront{response: json.RawMessage(`{"products": {"edges": []}}`)}
	svc := NewProductService(front, zap.NewNop())

	_, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, front.lastVars["first"])
}
