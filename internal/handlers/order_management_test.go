package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func seedPendingOrder(env *testEnv, brandID, productID uint, qty int) *models.Order {
	pid := productID
	order := &models.Order{
		BrandID:        brandID,
		PaymentStatus:  models.PaymentPending,
		DeliveryStatus: models.DeliveryPending,
		TotalAmount:    float64(qty) * 100,
	}
	if err := env.DB.Create(order).Error; err != nil {
		env.T.Fatalf("failed to create order: %v", err)
	}
	item := &models.OrderItem{
		OrderID:     order.ID,
		ProductID:   &pid,
		ProductName: "test_product",
		Quantity:    qty,
		Price:       100,
	}
	if err := env.DB.Create(item).Error; err != nil {
		env.T.Fatalf("failed to create order item: %v", err)
	}
	payment := &models.Payment{
		OrderID: order.ID,
		Amount:  order.TotalAmount,
		Method:  models.PaymentMethodCOD,
		Status:  models.PaymentPending,
	}
	if err := env.DB.Create(payment).Error; err != nil {
		env.T.Fatalf("failed to create payment: %v", err)
	}
	return order
}

func TestPayTakesStockAndCompletes(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 3)

	rec, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/pay", order.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)

	require.NoError(t, h.Pay(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 2, env.stockOf(product.ID))

	var got models.Order
	require.NoError(t, env.DB.Preload("Payment").First(&got, order.ID).Error)
	require.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	require.Equal(t, models.DeliveryProcessing, got.DeliveryStatus)
	require.Equal(t, models.PaymentCompleted, got.Payment.Status)
}

func TestPayInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 1)
	order := seedPendingOrder(env, brand.ID, product.ID, 3)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/pay", order.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)

	err := h.Pay(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))

	require.Equal(t, 1, env.stockOf(product.ID))
	var got models.Order
	require.NoError(t, env.DB.First(&got, order.ID).Error)
	require.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestPayForeignBrandForbidden(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	_, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 1)
	outsider := env.createUser("outsider@test.dev", models.RoleStaff)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/pay", order.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, outsider)

	err := h.Pay(c)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, httpCode(t, err))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 1)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"delivery_status": "Teleported",
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)

	err := h.UpdateStatus(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestUpdateStatusCancelCompletedRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 3)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/pay", order.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)
	require.NoError(t, h.Pay(c))
	require.Equal(t, 2, env.stockOf(product.ID))

	_, c2 := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"payment_status":  models.PaymentCancelled,
		"delivery_status": models.DeliveryCancelled,
	})
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c2, owner)
	require.NoError(t, h.UpdateStatus(c2))

	require.Equal(t, 5, env.stockOf(product.ID))
}

func TestUpdateStatusCompletePendingTakesStock(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 3)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"payment_status": models.PaymentCompleted,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, 2, env.stockOf(product.ID))

	var got models.Order
	require.NoError(t, env.DB.Preload("Payment").First(&got, order.ID).Error)
	require.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	require.Equal(t, models.PaymentCompleted, got.Payment.Status)

	// Cancelling afterwards restores exactly what was taken.
	_, c2 := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"payment_status": models.PaymentCancelled,
	})
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c2, owner)
	require.NoError(t, h.UpdateStatus(c2))
	require.Equal(t, 5, env.stockOf(product.ID))
}

func TestUpdateStatusCompleteInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 1)
	order := seedPendingOrder(env, brand.ID, product.ID, 3)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"payment_status": models.PaymentCompleted,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)

	err := h.UpdateStatus(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))

	require.Equal(t, 1, env.stockOf(product.ID))
	var got models.Order
	require.NoError(t, env.DB.First(&got, order.ID).Error)
	require.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestDeleteOrderRestoresCompletedStock(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 2)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/status", order.ID), map[string]string{
		"payment_status": models.PaymentCompleted,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)
	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, 3, env.stockOf(product.ID))

	_, c2 := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/ordermanagement/%d", order.ID), nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c2, owner)
	require.NoError(t, h.Delete(c2))

	require.Equal(t, 5, env.stockOf(product.ID))

	var orders, items, payments int64
	env.DB.Model(&models.Order{}).Count(&orders)
	env.DB.Model(&models.OrderItem{}).Count(&items)
	env.DB.Model(&models.Payment{}).Count(&payments)
	require.Zero(t, orders)
	require.Zero(t, items)
	require.Zero(t, payments)
}

func TestDeleteProcessingOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	h := &OrderManagementHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 5)
	order := seedPendingOrder(env, brand.ID, product.ID, 2)

	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/ordermanagement/%d/pay", order.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c, owner)
	require.NoError(t, h.Pay(c))

	_, c2 := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/ordermanagement/%d", order.ID), nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(order.ID))
	env.asUser(c2, owner)

	err := h.Delete(c2)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))

	var orders int64
	env.DB.Model(&models.Order{}).Count(&orders)
	require.Equal(t, int64(1), orders)
	require.Equal(t, 3, env.stockOf(product.ID))
}
