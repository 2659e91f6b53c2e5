package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

// OrderManagementHandler is the seller-side view of orders: listing a
// brand's orders, recording payments and moving delivery along.
type OrderManagementHandler struct {
	DB       *gorm.DB
	Authz    *authz.Service
	Producer *events.Producer
}

func validPaymentStatus(s string) bool {
	switch s {
	case models.PaymentPending, models.PaymentCompleted, models.PaymentCancelled:
		return true
	}
	return false
}

func validDeliveryStatus(s string) bool {
	switch s {
	case models.DeliveryPending, models.DeliveryProcessing, models.DeliveryShipped,
		models.DeliveryDelivered, models.DeliveryCancelled:
		return true
	}
	return false
}

func (h *OrderManagementHandler) requireBrandAccess(c echo.Context, brandID uint) error {
	id, err := userIdentity(c)
	if err != nil {
		return err
	}
	if err := h.Authz.CanManageBrand(id, brandID, ""); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}
	return nil
}

// ListByBrand returns a brand's orders, optionally filtered by payment
// and delivery status query params.
func (h *OrderManagementHandler) ListByBrand(c echo.Context) error {
	brandID, err := strconv.Atoi(c.Param("brandId"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if err := h.requireBrandAccess(c, uint(brandID)); err != nil {
		return err
	}

	q := h.DB.Preload("Items").Preload("Payment").Where("brand_id = ?", brandID)
	if s := c.QueryParam("payment_status"); s != "" {
		if !validPaymentStatus(s) {
			return echo.NewHTTPError(http.StatusBadRequest, "Trạng thái thanh toán không hợp lệ.")
		}
		q = q.Where("payment_status = ?", s)
	}
	if s := c.QueryParam("delivery_status"); s != "" {
		if !validDeliveryStatus(s) {
			return echo.NewHTTPError(http.StatusBadRequest, "Trạng thái giao hàng không hợp lệ.")
		}
		q = q.Where("delivery_status = ?", s)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderManagementHandler) GetOrder(c echo.Context) error {
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Payment").First(&order, orderID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
	}
	if err := h.requireBrandAccess(c, order.BrandID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// Pay records a completed payment on a pending order. Stock is taken here
// because pending orders never decrement at checkout.
func (h *OrderManagementHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_pay")

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Payment").First(&order, orderID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
	}
	if err := h.requireBrandAccess(c, order.BrandID); err != nil {
		return err
	}
	if order.PaymentStatus != models.PaymentPending {
		return echo.NewHTTPError(http.StatusBadRequest, "Đơn hàng đã được thanh toán hoặc đã hủy.")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := decrementStock(tx, *item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, errInsufficientStock) {
					return echo.NewHTTPError(http.StatusBadRequest,
						fmt.Sprintf("Sản phẩm %s không đủ tồn kho.", item.ProductName))
				}
				return err
			}
		}
		order.PaymentStatus = models.PaymentCompleted
		if order.DeliveryStatus == models.DeliveryPending {
			order.DeliveryStatus = models.DeliveryProcessing
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		if order.Payment != nil {
			order.Payment.Status = models.PaymentCompleted
			return tx.Save(order.Payment).Error
		}
		payment := models.Payment{
			OrderID: order.ID,
			Amount:  order.TotalAmount,
			Method:  models.PaymentMethodCOD,
			Status:  models.PaymentCompleted,
		}
		return tx.Create(&payment).Error
	})
	if txErr != nil {
		var httpErr *echo.HTTPError
		if errors.As(txErr, &httpErr) {
			return httpErr
		}
		l.Error("order_pay_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":    "order_paid",
		"orderID": order.ID,
		"brandID": order.BrandID,
		"amount":  order.TotalAmount,
	})

	l.Info("order_pay_success", "orderID", order.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xác nhận thanh toán thành công.",
	})
}

type updateOrderStatusRequest struct {
	PaymentStatus  string `json:"payment_status"`
	DeliveryStatus string `json:"delivery_status"`
}

func (h *OrderManagementHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_update_status")

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req updateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.PaymentStatus != "" && !validPaymentStatus(req.PaymentStatus) {
		return echo.NewHTTPError(http.StatusBadRequest, "Trạng thái thanh toán không hợp lệ.")
	}
	if req.DeliveryStatus != "" && !validDeliveryStatus(req.DeliveryStatus) {
		return echo.NewHTTPError(http.StatusBadRequest, "Trạng thái giao hàng không hợp lệ.")
	}

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Payment").First(&order, orderID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
	}
	if err := h.requireBrandAccess(c, order.BrandID); err != nil {
		return err
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.PaymentStatus == models.PaymentCancelled && order.PaymentStatus == models.PaymentCompleted {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := restoreStock(tx, *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		// Completing a payment here takes stock the same way Pay does,
		// so a later cancel restores exactly what was taken.
		if req.PaymentStatus == models.PaymentCompleted && order.PaymentStatus == models.PaymentPending {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := decrementStock(tx, *item.ProductID, item.Quantity); err != nil {
					if errors.Is(err, errInsufficientStock) {
						return echo.NewHTTPError(http.StatusBadRequest,
							fmt.Sprintf("Sản phẩm %s không đủ tồn kho.", item.ProductName))
					}
					return err
				}
			}
		}
		if req.PaymentStatus != "" {
			order.PaymentStatus = req.PaymentStatus
			if order.Payment != nil {
				order.Payment.Status = req.PaymentStatus
				if err := tx.Save(order.Payment).Error; err != nil {
					return err
				}
			}
		}
		if req.DeliveryStatus != "" {
			order.DeliveryStatus = req.DeliveryStatus
		}
		return tx.Save(&order).Error
	})
	if txErr != nil {
		var httpErr *echo.HTTPError
		if errors.As(txErr, &httpErr) {
			return httpErr
		}
		l.Error("order_update_status_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("order_update_status_success", "orderID", order.ID,
		"paymentStatus", order.PaymentStatus, "deliveryStatus", order.DeliveryStatus)
	return c.JSON(http.StatusOK, order)
}

// Delete removes an order still awaiting fulfilment. A completed payment
// gives its stock back first.
func (h *OrderManagementHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_delete")

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Payment").First(&order, orderID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
	}
	if err := h.requireBrandAccess(c, order.BrandID); err != nil {
		return err
	}
	if order.DeliveryStatus != models.DeliveryPending {
		return echo.NewHTTPError(http.StatusBadRequest, "Chỉ có thể xóa đơn hàng đang chờ xử lý.")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if order.PaymentStatus == models.PaymentCompleted {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := restoreStock(tx, *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if txErr != nil {
		l.Error("order_delete_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("order_delete_success", "orderID", order.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa đơn hàng thành công.",
	})
}
