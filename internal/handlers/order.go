package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

type checkoutRequest struct {
	BrandID       uint   `json:"brand_id"`
	PaymentMethod string `json:"payment_method"`
	AddressID     *uint  `json:"address_id"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// Checkout turns the brand's slice of the customer's cart into an order.
// Everything runs in one transaction: order, item snapshots, payment row,
// and for bank-card payments the guarded stock decrement. Paying by card
// completes the payment immediately; other methods leave it pending and
// the stock untouched until the seller records the payment.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_checkout")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.BrandID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Thiếu thông tin thương hiệu.")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCOD
	}

	fullName, phone, address := req.FullName, req.Phone, req.Address
	if req.AddressID != nil {
		var addr models.CustomerAddress
		if err := h.DB.Where("id = ? AND customer_id = ?", *req.AddressID, id.ID).First(&addr).Error; err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Địa chỉ không tồn tại.")
		}
		fullName, phone, address = addr.FullName, addr.Phone, addr.Address
	} else if fullName == "" || phone == "" || address == "" {
		var addr models.CustomerAddress
		if err := h.DB.Where("customer_id = ? AND is_default = ?", id.ID, true).First(&addr).Error; err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Vui lòng cung cấp địa chỉ giao hàng.")
		}
		fullName, phone, address = addr.FullName, addr.Phone, addr.Address
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Preload("Items").Where("customer_id = ?", id.ID).First(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Giỏ hàng trống hoặc không tồn tại.")
		}

		type line struct {
			item    models.CartItem
			product models.Product
		}
		var lines []line
		for _, item := range cart.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				continue
			}
			if product.BrandID == req.BrandID {
				lines = append(lines, line{item: item, product: product})
			}
		}
		if len(lines) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Giỏ hàng trống hoặc không tồn tại.")
		}

		var total float64
		for _, ln := range lines {
			var inv models.Inventory
			if err := tx.Where("product_id = ?", ln.product.ID).First(&inv).Error; err != nil || inv.StockQuantity < ln.item.Quantity {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("Sản phẩm %s không đủ tồn kho.", ln.product.Name))
			}
			total += ln.product.PriceSell * float64(ln.item.Quantity)
		}

		customerID := id.ID
		eta := time.Now().AddDate(0, 0, 3)
		order = models.Order{
			BrandID:               req.BrandID,
			CustomerID:            &customerID,
			FullName:              fullName,
			Phone:                 phone,
			Address:               address,
			PaymentStatus:         models.PaymentPending,
			DeliveryStatus:        models.DeliveryPending,
			TotalAmount:           total,
			EstimatedDeliveryDate: &eta,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, ln := range lines {
			productID := ln.product.ID
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   &productID,
				ProductName: ln.product.Name,
				Quantity:    ln.item.Quantity,
				Price:       ln.product.PriceSell,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		payment := models.Payment{
			OrderID: order.ID,
			Amount:  total,
			Method:  req.PaymentMethod,
			Status:  models.PaymentPending,
		}

		if req.PaymentMethod == models.PaymentMethodBankCard {
			for _, ln := range lines {
				if err := decrementStock(tx, ln.product.ID, ln.item.Quantity); err != nil {
					if errors.Is(err, errInsufficientStock) {
						return echo.NewHTTPError(http.StatusBadRequest,
							fmt.Sprintf("Sản phẩm %s không đủ tồn kho.", ln.product.Name))
					}
					return err
				}
			}
			payment.Status = models.PaymentCompleted
			order.PaymentStatus = models.PaymentCompleted
			order.DeliveryStatus = models.DeliveryProcessing
			if err := tx.Save(&order).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		for _, ln := range lines {
			if err := tx.Delete(&models.CartItem{}, ln.item.ID).Error; err != nil {
				return err
			}
		}

		var remaining int64
		if err := tx.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Delete(&cart).Error
		}
		return nil
	})
	if txErr != nil {
		var httpErr *echo.HTTPError
		if errors.As(txErr, &httpErr) {
			l.Warn("order_checkout_failed", "status", httpErr.Code, "customerID", id.ID)
			return httpErr
		}
		l.Error("order_checkout_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":       "order_placed",
		"orderID":    order.ID,
		"customerID": id.ID,
		"brandID":    order.BrandID,
		"total":      order.TotalAmount,
		"method":     req.PaymentMethod,
	})

	l.Info("order_checkout_success", "orderID", order.ID, "customerID", id.ID, "total", order.TotalAmount)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Đặt hàng thành công.",
		"order_id": order.ID,
		"total":    order.TotalAmount,
	})
}

func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Preload("Payment").
		Where("customer_id = ?", id.ID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var order models.Order
	if err := h.DB.Preload("Items").Preload("Payment").
		Where("id = ? AND customer_id = ?", orderID, id.ID).
		First(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
	}
	return c.JSON(http.StatusOK, order)
}

// CancelOrder lets the customer cancel before shipment. Stock comes back
// only when the payment had actually completed, since pending payments
// never took stock in the first place.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_cancel")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").Preload("Payment").
			Where("id = ? AND customer_id = ?", orderID, id.ID).
			First(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Đơn hàng không tồn tại.")
		}

		if order.DeliveryStatus != models.DeliveryPending && order.DeliveryStatus != models.DeliveryProcessing {
			return echo.NewHTTPError(http.StatusBadRequest, "Đơn hàng không thể hủy ở trạng thái hiện tại.")
		}

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

		order.PaymentStatus = models.PaymentCancelled
		order.DeliveryStatus = models.DeliveryCancelled
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		if order.Payment != nil {
			order.Payment.Status = models.PaymentCancelled
			if err := tx.Save(order.Payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		var httpErr *echo.HTTPError
		if errors.As(txErr, &httpErr) {
			return httpErr
		}
		l.Error("order_cancel_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(orderID), map[string]any{
		"type":       "order_cancelled",
		"orderID":    orderID,
		"customerID": id.ID,
	})

	l.Info("order_cancel_success", "orderID", orderID, "customerID", id.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Hủy đơn hàng thành công.",
	})
}
