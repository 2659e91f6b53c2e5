package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

type InventoryHandler struct {
	DB    *gorm.DB
	Authz *authz.Service
}

func (h *InventoryHandler) GetByProduct(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var inv models.Inventory
	if err := h.DB.Where("product_id = ?", productID).First(&inv).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Không tìm thấy tồn kho cho sản phẩm này.")
	}
	return c.JSON(http.StatusOK, inv)
}

type updateStockRequest struct {
	StockQuantity *int `json:"stock_quantity"`
}

// UpdateStock sets the absolute stock level. Besides brand owners and
// admins, approved staff holding the InventoryManager role may call this.
func (h *InventoryHandler) UpdateStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory_update")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req updateStockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.StockQuantity == nil || *req.StockQuantity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Số lượng tồn kho không hợp lệ.")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Sản phẩm không tồn tại.")
	}

	if err := h.Authz.CanManageBrand(id, product.BrandID, models.StaffRoleInventoryManager); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		l.Warn("inventory_update_failed", "status", 403, "reason", "forbidden", "productID", productID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý tồn kho của thương hiệu này.")
	}

	var inv models.Inventory
	err = h.DB.Where("product_id = ?", productID).First(&inv).Error
	switch {
	case err == nil:
		inv.StockQuantity = *req.StockQuantity
		inv.LastUpdated = time.Now()
		err = h.DB.Save(&inv).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		inv = models.Inventory{ProductID: uint(productID), StockQuantity: *req.StockQuantity, LastUpdated: time.Now()}
		err = h.DB.Create(&inv).Error
	}
	if err != nil {
		l.Error("inventory_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("inventory_update_success", "productID", productID, "stock", inv.StockQuantity)
	return c.JSON(http.StatusOK, inv)
}
