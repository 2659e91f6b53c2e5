package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func approveStaff(env *testEnv, email string, brandID uint, staffRole string) *models.User {
	u := env.createUser(email, models.RoleStaff)
	status := models.ApprovalApproved
	u.BrandID = &brandID
	u.ApprovalStatus = &status
	u.StaffRole = staffRole
	if err := env.DB.Save(u).Error; err != nil {
		env.T.Fatalf("failed to approve staff: %v", err)
	}
	return u
}

func (env *testEnv) updateStock(h *InventoryHandler, actor *models.User, productID uint, qty int) error {
	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/inventory/%d", productID), map[string]any{
		"stock_quantity": qty,
	})
	c.SetParamNames("productId")
	c.SetParamValues(fmt.Sprint(productID))
	env.asUser(c, actor)
	return h.UpdateStock(c)
}

func TestUpdateStockByOwner(t *testing.T) {
	env := newTestEnv(t)
	h := &InventoryHandler{DB: env.DB, Authz: env.Authz}

	owner, _, product := env.createBrandProduct("owner@test.dev", 0)

	require.NoError(t, env.updateStock(h, owner, product.ID, 42))
	require.Equal(t, 42, env.stockOf(product.ID))
}

func TestUpdateStockByInventoryManager(t *testing.T) {
	env := newTestEnv(t)
	h := &InventoryHandler{DB: env.DB, Authz: env.Authz}

	_, brand, product := env.createBrandProduct("owner@test.dev", 0)
	manager := approveStaff(env, "inv@test.dev", brand.ID, models.StaffRoleInventoryManager)

	require.NoError(t, env.updateStock(h, manager, product.ID, 7))
	require.Equal(t, 7, env.stockOf(product.ID))
}

func TestUpdateStockByPlainStaffForbidden(t *testing.T) {
	env := newTestEnv(t)
	h := &InventoryHandler{DB: env.DB, Authz: env.Authz}

	_, brand, product := env.createBrandProduct("owner@test.dev", 0)
	plain := approveStaff(env, "plain@test.dev", brand.ID, "")

	err := env.updateStock(h, plain, product.ID, 7)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, httpCode(t, err))
}

func TestUpdateStockByBrandManagerAllowed(t *testing.T) {
	env := newTestEnv(t)
	h := &InventoryHandler{DB: env.DB, Authz: env.Authz}

	_, brand, product := env.createBrandProduct("owner@test.dev", 0)
	manager := approveStaff(env, "bm@test.dev", brand.ID, models.StaffRoleBrandManager)

	require.NoError(t, env.updateStock(h, manager, product.ID, 9))
	require.Equal(t, 9, env.stockOf(product.ID))
}

func TestUpdateStockNegativeRejected(t *testing.T) {
	env := newTestEnv(t)
	h := &InventoryHandler{DB: env.DB, Authz: env.Authz}

	owner, _, product := env.createBrandProduct("owner@test.dev", 5)

	err := env.updateStock(h, owner, product.ID, -1)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))
	require.Equal(t, 5, env.stockOf(product.ID))
}

func TestGuardedDecrementNeverGoesNegative(t *testing.T) {
	env := newTestEnv(t)

	_, _, product := env.createBrandProduct("owner@test.dev", 3)

	require.NoError(t, decrementStock(env.DB, product.ID, 3))
	require.Equal(t, 0, env.stockOf(product.ID))

	err := decrementStock(env.DB, product.ID, 1)
	require.ErrorIs(t, err, errInsufficientStock)
	require.Equal(t, 0, env.stockOf(product.ID))
}
