package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func TestGetCartCreatesEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	customer := env.createCustomer("buyer@test.dev")

	rec, c := env.doJSONRequest(http.MethodGet, "/api/cart", nil)
	env.asCustomer(c, customer)

	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, customer.ID, resp.CustomerID)
	require.Empty(t, resp.Items)

	var count int64
	env.DB.Model(&models.Cart{}).Where("customer_id = ?", customer.ID).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestAddToCart(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 5)
	customer := env.createCustomer("buyer@test.dev")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": product.ID,
		"quantity":   2,
	})
	env.asCustomer(c, customer)

	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, env.DB.First(&item).Error)
	require.Equal(t, product.ID, item.ProductID)
	require.Equal(t, 2, item.Quantity)
}

func TestAddToCartMergesExistingLine(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 5)
	customer := env.createCustomer("buyer@test.dev")
	env.addCartItem(customer.ID, product.ID, 2)

	_, c := env.doJSONRequest(http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": product.ID,
		"quantity":   1,
	})
	env.asCustomer(c, customer)
	require.NoError(t, h.AddToCart(c))

	var items []models.CartItem
	env.DB.Find(&items)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Quantity)
}

func TestAddToCartExceedingStockRejected(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 2)
	customer := env.createCustomer("buyer@test.dev")

	_, c := env.doJSONRequest(http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": product.ID,
		"quantity":   3,
	})
	env.asCustomer(c, customer)

	err := h.AddToCart(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestUpdateCartItemQuantity(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 5)
	customer := env.createCustomer("buyer@test.dev")
	env.addCartItem(customer.ID, product.ID, 1)

	var item models.CartItem
	require.NoError(t, env.DB.First(&item).Error)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/cart/items/%d", item.ID), map[string]any{
		"quantity": 4,
	})
	c.SetParamNames("cartItemId")
	c.SetParamValues(fmt.Sprint(item.ID))
	env.asCustomer(c, customer)

	require.NoError(t, h.UpdateCartItem(c))

	require.NoError(t, env.DB.First(&item, item.ID).Error)
	require.Equal(t, 4, item.Quantity)
}

func TestRemoveFromCart(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 5)
	customer := env.createCustomer("buyer@test.dev")
	env.addCartItem(customer.ID, product.ID, 1)

	var item models.CartItem
	require.NoError(t, env.DB.First(&item).Error)

	_, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/cart/items/%d", item.ID), nil)
	c.SetParamNames("cartItemId")
	c.SetParamValues(fmt.Sprint(item.ID))
	env.asCustomer(c, customer)

	require.NoError(t, h.RemoveFromCart(c))

	var count int64
	env.DB.Model(&models.CartItem{}).Count(&count)
	require.Zero(t, count)
}

func TestRemoveForeignCartItemNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := &CartHandler{DB: env.DB}

	_, _, product := env.createBrandProduct("owner@test.dev", 5)
	alice := env.createCustomer("alice@test.dev")
	bob := env.createCustomer("bob@test.dev")
	env.addCartItem(alice.ID, product.ID, 1)
	env.addCartItem(bob.ID, product.ID, 1)

	var item models.CartItem
	require.NoError(t, env.DB.First(&item).Error) // alice's line

	_, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/cart/items/%d", item.ID), nil)
	c.SetParamNames("cartItemId")
	c.SetParamValues(fmt.Sprint(item.ID))
	env.asCustomer(c, bob)

	err := h.RemoveFromCart(c)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, httpCode(t, err))
}
