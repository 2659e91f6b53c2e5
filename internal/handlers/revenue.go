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

type RevenueHandler struct {
	DB    *gorm.DB
	Authz *authz.Service
}

type revenueReport struct {
	BrandID    uint    `json:"brand_id"`
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	OrderCount int64   `json:"order_count"`
	Revenue    float64 `json:"revenue"`
	Cost       float64 `json:"cost"`
	Profit     float64 `json:"profit"`
}

// GetBrandRevenue aggregates completed orders for a brand over an optional
// date range (?from=2026-01-01&to=2026-01-31). Profit subtracts the
// product's recorded cost price; items whose product no longer exists or
// has no cost contribute revenue only.
func (h *RevenueHandler) GetBrandRevenue(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "revenue_brand")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	brandID, err := strconv.Atoi(c.Param("brandId"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if err := h.Authz.CanManageBrand(id, uint(brandID), models.StaffRoleBrandManager); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		l.Warn("revenue_brand_failed", "status", 403, "reason", "forbidden", "brandID", brandID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền xem doanh thu của thương hiệu này.")
	}

	report := revenueReport{BrandID: uint(brandID)}

	q := h.DB.Model(&models.Order{}).
		Where("brand_id = ? AND payment_status = ?", brandID, models.PaymentCompleted)
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Ngày bắt đầu không hợp lệ.")
		}
		q = q.Where("created_at >= ?", t)
		report.From = from
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Ngày kết thúc không hợp lệ.")
		}
		q = q.Where("created_at < ?", t.AddDate(0, 0, 1))
		report.To = to
	}

	var orders []models.Order
	if err := q.Preload("Items").Find(&orders).Error; err != nil {
		l.Error("revenue_brand_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	report.OrderCount = int64(len(orders))
	for _, order := range orders {
		for _, item := range order.Items {
			report.Revenue += item.Price * float64(item.Quantity)
			if item.ProductID == nil {
				continue
			}
			var product models.Product
			if err := h.DB.First(&product, *item.ProductID).Error; err != nil {
				continue
			}
			if product.PriceCost != nil {
				report.Cost += *product.PriceCost * float64(item.Quantity)
			}
		}
	}
	report.Profit = report.Revenue - report.Cost

	l.Info("revenue_brand_success", "brandID", brandID, "orders", report.OrderCount, "revenue", report.Revenue)
	return c.JSON(http.StatusOK, report)
}
