package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func seedCompletedOrder(env *testEnv, brandID, productID uint, qty int, price float64, at time.Time) {
	pid := productID
	order := &models.Order{
		BrandID:        brandID,
		PaymentStatus:  models.PaymentCompleted,
		DeliveryStatus: models.DeliveryDelivered,
		TotalAmount:    price * float64(qty),
		CreatedAt:      at,
	}
	if err := env.DB.Create(order).Error; err != nil {
		env.T.Fatalf("failed to create order: %v", err)
	}
	item := &models.OrderItem{OrderID: order.ID, ProductID: &pid, ProductName: "p", Quantity: qty, Price: price}
	if err := env.DB.Create(item).Error; err != nil {
		env.T.Fatalf("failed to create order item: %v", err)
	}
}

func TestBrandRevenueAndProfit(t *testing.T) {
	env := newTestEnv(t)
	h := &RevenueHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 10)
	cost := 60.0
	require.NoError(t, env.DB.Model(product).Update("price_cost", cost).Error)

	now := time.Now()
	seedCompletedOrder(env, brand.ID, product.ID, 2, 100, now)
	seedCompletedOrder(env, brand.ID, product.ID, 1, 100, now)

	// Pending orders never count.
	pending := &models.Order{BrandID: brand.ID, PaymentStatus: models.PaymentPending, DeliveryStatus: models.DeliveryPending, TotalAmount: 500}
	require.NoError(t, env.DB.Create(pending).Error)

	rec, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/revenue/brand/%d", brand.ID), nil)
	c.SetParamNames("brandId")
	c.SetParamValues(fmt.Sprint(brand.ID))
	env.asUser(c, owner)

	require.NoError(t, h.GetBrandRevenue(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp revenueReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp.OrderCount)
	require.EqualValues(t, 300, resp.Revenue)
	require.EqualValues(t, 180, resp.Cost)
	require.EqualValues(t, 120, resp.Profit)
}

func TestBrandRevenueDateRange(t *testing.T) {
	env := newTestEnv(t)
	h := &RevenueHandler{DB: env.DB, Authz: env.Authz}

	owner, brand, product := env.createBrandProduct("owner@test.dev", 10)

	jan := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	seedCompletedOrder(env, brand.ID, product.ID, 1, 100, jan)
	seedCompletedOrder(env, brand.ID, product.ID, 1, 100, mar)

	rec, c := env.doJSONRequest(http.MethodGet,
		fmt.Sprintf("/api/revenue/brand/%d?from=2026-01-01&to=2026-01-31", brand.ID), nil)
	c.SetParamNames("brandId")
	c.SetParamValues(fmt.Sprint(brand.ID))
	env.asUser(c, owner)

	require.NoError(t, h.GetBrandRevenue(c))

	var resp revenueReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 1, resp.OrderCount)
	require.EqualValues(t, 100, resp.Revenue)
}

func TestBrandRevenueForeignStaffForbidden(t *testing.T) {
	env := newTestEnv(t)
	h := &RevenueHandler{DB: env.DB, Authz: env.Authz}

	_, brand, _ := env.createBrandProduct("owner@test.dev", 10)
	outsider := env.createUser("outsider@test.dev", models.RoleStaff)

	_, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/revenue/brand/%d", brand.ID), nil)
	c.SetParamNames("brandId")
	c.SetParamValues(fmt.Sprint(brand.ID))
	env.asUser(c, outsider)

	err := h.GetBrandRevenue(c)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, httpCode(t, err))
}
