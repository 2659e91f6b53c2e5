package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/hash"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/otp"
	"github.com/dabada911/hakibavuong/internal/token"
)

// ProfileHandler serves the logged-in principal's own account, for both
// staff users and customers.
type ProfileHandler struct {
	DB  *gorm.DB
	OTP *otp.Service
}

func (h *ProfileHandler) Info(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if id.IsCustomer() {
		var customer models.Customer
		if err := h.DB.First(&customer, id.ID).Error; err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
		}
		return c.JSON(http.StatusOK, toCustomerView(customer))
	}

	var user models.User
	if err := h.DB.First(&user, id.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	return c.JSON(http.StatusOK, toUserView(user))
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *ProfileHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_update")

	id, err := identity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if id.IsCustomer() {
		var customer models.Customer
		if err := h.DB.First(&customer, id.ID).Error; err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
		}
		if req.Name != "" {
			customer.Name = req.Name
		}
		if req.Phone != "" {
			customer.Phone = req.Phone
		}
		if err := h.DB.Save(&customer).Error; err != nil {
			l.Error("profile_update_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
		}
		l.Info("profile_update_success", "customerID", customer.ID)
		return c.JSON(http.StatusOK, toCustomerView(customer))
	}

	var user models.User
	if err := h.DB.First(&user, id.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("profile_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	l.Info("profile_update_success", "userID", user.ID)
	return c.JSON(http.StatusOK, toUserView(user))
}

// RequestPasswordReset e-mails a reset code to the logged-in account.
func (h *ProfileHandler) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_reset_request")

	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := h.OTP.Issue(otp.PurposeResetPassword, id.Email, "Đặt lại mật khẩu"); err != nil {
		l.Error("profile_reset_request_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("profile_reset_request_success", "accountID", id.ID, "type", id.Type)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Mã OTP đã được gửi đến email của bạn.",
	})
}

type profileResetPasswordRequest struct {
	OTP             string `json:"otp"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *ProfileHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_reset_password")

	id, err := identity(c)
	if err != nil {
		return err
	}

	var req profileResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.NewPassword != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu xác nhận không khớp.")
	}
	if len(req.NewPassword) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
	}

	if err := h.OTP.Verify(otp.PurposeResetPassword, id.Email, req.OTP); err != nil {
		if errors.Is(err, otp.ErrInvalid) {
			l.Warn("profile_reset_password_failed", "status", 400, "reason", "otp_invalid", "accountID", id.ID)
			return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	hashed, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		l.Error("profile_reset_password_failed", "status", 500, "reason", "hash_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	var dbErr error
	if id.Type == token.TypeCustomer {
		dbErr = h.DB.Model(&models.Customer{}).Where("id = ?", id.ID).Update("password", hashed).Error
	} else {
		dbErr = h.DB.Model(&models.User{}).Where("id = ?", id.ID).Update("password", hashed).Error
	}
	if dbErr != nil {
		l.Error("profile_reset_password_failed", "status", 500, "reason", "db_error", "error", dbErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("profile_reset_password_success", "accountID", id.ID, "type", id.Type)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đặt lại mật khẩu thành công.",
	})
}
