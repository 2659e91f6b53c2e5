package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func (env *testEnv) defaultAddressCount(customerID uint) int64 {
	var n int64
	env.DB.Model(&models.CustomerAddress{}).
		Where("customer_id = ? AND is_default = ?", customerID, true).
		Count(&n)
	return n
}

func (env *testEnv) createAddress(h *CustomerAddressHandler, cu *models.Customer, isDefault bool) {
	_, c := env.doJSONRequest(http.MethodPost, "/api/customeraddress", map[string]any{
		"full_name":  "Nguyen Van A",
		"phone":      "0900000000",
		"address":    "1 Duong Le Loi",
		"is_default": isDefault,
	})
	env.asCustomer(c, cu)
	require.NoError(env.T, h.CreateAddress(c))
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	env := newTestEnv(t)
	h := &CustomerAddressHandler{DB: env.DB}

	customer := env.createCustomer("buyer@test.dev")
	env.createAddress(h, customer, false)

	var addr models.CustomerAddress
	require.NoError(t, env.DB.First(&addr).Error)
	require.True(t, addr.IsDefault)
}

func TestSingleDefaultInvariant(t *testing.T) {
	env := newTestEnv(t)
	h := &CustomerAddressHandler{DB: env.DB}

	customer := env.createCustomer("buyer@test.dev")
	env.createAddress(h, customer, false)
	env.createAddress(h, customer, true)
	env.createAddress(h, customer, true)

	require.EqualValues(t, 1, env.defaultAddressCount(customer.ID))

	// The newest one holds the flag.
	var addr models.CustomerAddress
	require.NoError(t, env.DB.Where("is_default = ?", true).First(&addr).Error)
	var last models.CustomerAddress
	require.NoError(t, env.DB.Order("id DESC").First(&last).Error)
	require.Equal(t, last.ID, addr.ID)
}

func TestMarkExistingAddressDefault(t *testing.T) {
	env := newTestEnv(t)
	h := &CustomerAddressHandler{DB: env.DB}

	customer := env.createCustomer("buyer@test.dev")
	env.createAddress(h, customer, false)
	env.createAddress(h, customer, false)

	var second models.CustomerAddress
	require.NoError(t, env.DB.Order("id DESC").First(&second).Error)
	require.False(t, second.IsDefault)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/customeraddress/%d", second.ID), map[string]any{
		"is_default": true,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(second.ID))
	env.asCustomer(c, customer)
	require.NoError(t, h.UpdateAddress(c))

	require.EqualValues(t, 1, env.defaultAddressCount(customer.ID))
	require.NoError(t, env.DB.First(&second, second.ID).Error)
	require.True(t, second.IsDefault)
}

func TestDeleteDefaultPromotesOldestRemaining(t *testing.T) {
	env := newTestEnv(t)
	h := &CustomerAddressHandler{DB: env.DB}

	customer := env.createCustomer("buyer@test.dev")
	env.createAddress(h, customer, false) // default by being first
	env.createAddress(h, customer, false)

	var first models.CustomerAddress
	require.NoError(t, env.DB.Where("is_default = ?", true).First(&first).Error)

	_, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/customeraddress/%d", first.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(first.ID))
	env.asCustomer(c, customer)
	require.NoError(t, h.DeleteAddress(c))

	require.EqualValues(t, 1, env.defaultAddressCount(customer.ID))
}

func TestAddressScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	h := &CustomerAddressHandler{DB: env.DB}

	alice := env.createCustomer("alice@test.dev")
	bob := env.createCustomer("bob@test.dev")
	env.createAddress(h, alice, true)

	var addr models.CustomerAddress
	require.NoError(t, env.DB.First(&addr).Error)

	_, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/customeraddress/%d", addr.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(addr.ID))
	env.asCustomer(c, bob)

	err := h.DeleteAddress(c)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, httpCode(t, err))
}
