package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

type CustomerAddressHandler struct {
	DB *gorm.DB
}

func (h *CustomerAddressHandler) ListAddresses(c echo.Context) error {
	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	var addresses []models.CustomerAddress
	if err := h.DB.Where("customer_id = ?", id.ID).Order("id").Find(&addresses).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	return c.JSON(http.StatusOK, addresses)
}

type addressRequest struct {
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	IsDefault bool   `json:"is_default"`
}

// CreateAddress adds a shipping address. The first address a customer
// creates becomes the default; marking a later one default clears the
// flag on the rest, so at most one row per customer carries it.
func (h *CustomerAddressHandler) CreateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address_create")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.FullName == "" || req.Phone == "" || req.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Vui lòng điền đầy đủ thông tin địa chỉ.")
	}

	var addr models.CustomerAddress
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CustomerAddress{}).Where("customer_id = ?", id.ID).Count(&count).Error; err != nil {
			return err
		}
		isDefault := req.IsDefault || count == 0
		if isDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ?", id.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		addr = models.CustomerAddress{
			CustomerID: id.ID,
			FullName:   req.FullName,
			Phone:      req.Phone,
			Address:    req.Address,
			IsDefault:  isDefault,
		}
		return tx.Create(&addr).Error
	})
	if txErr != nil {
		l.Error("address_create_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("address_create_success", "customerID", id.ID, "addressID", addr.ID)
	return c.JSON(http.StatusCreated, addr)
}

func (h *CustomerAddressHandler) UpdateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address_update")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	addressID, err := strconv.Atoi(c.Param("id"))
	if err != nil || addressID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var addr models.CustomerAddress
	if err := h.DB.Where("id = ? AND customer_id = ?", addressID, id.ID).First(&addr).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Địa chỉ không tồn tại.")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.FullName != "" {
			addr.FullName = req.FullName
		}
		if req.Phone != "" {
			addr.Phone = req.Phone
		}
		if req.Address != "" {
			addr.Address = req.Address
		}
		if req.IsDefault && !addr.IsDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ?", id.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
			addr.IsDefault = true
		}
		return tx.Save(&addr).Error
	})
	if txErr != nil {
		l.Error("address_update_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("address_update_success", "customerID", id.ID, "addressID", addr.ID)
	return c.JSON(http.StatusOK, addr)
}

// DeleteAddress removes an address. Deleting the default promotes the
// oldest remaining address so the customer always has one.
func (h *CustomerAddressHandler) DeleteAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address_delete")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	addressID, err := strconv.Atoi(c.Param("id"))
	if err != nil || addressID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var addr models.CustomerAddress
	if err := h.DB.Where("id = ? AND customer_id = ?", addressID, id.ID).First(&addr).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Địa chỉ không tồn tại.")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&addr).Error; err != nil {
			return err
		}
		if !addr.IsDefault {
			return nil
		}
		var next models.CustomerAddress
		err := tx.Where("customer_id = ?", id.ID).Order("id").First(&next).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		next.IsDefault = true
		return tx.Save(&next).Error
	})
	if txErr != nil {
		l.Error("address_delete_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("address_delete_success", "customerID", id.ID, "addressID", addr.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa địa chỉ thành công.",
	})
}
