package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/hash"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/otp"
	"github.com/dabada911/hakibavuong/internal/token"
)

// CustomerAuthHandler mirrors AuthHandler for the shopper side of the site.
type CustomerAuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Issuer
	OTP      *otp.Service
	Producer *events.Producer
}

func (h *CustomerAuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if req.Password != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu xác nhận không khớp.")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
	}

	var existing models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		l.Warn("customer_register_failed", "status", 400, "reason", "email_exists")
		return echo.NewHTTPError(http.StatusBadRequest, "Email đã tồn tại.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("customer_register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("customer_register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	customer := models.Customer{
		Name:      req.Name,
		Email:     req.Email,
		Password:  pwHash,
		CreatedAt: time.Now(),
	}
	if err := h.DB.Create(&customer).Error; err != nil {
		l.Error("customer_register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	if err := h.OTP.Issue(otp.PurposeRegister, customer.Email, "Xác thực email đăng ký"); err != nil {
		l.Error("customer_register_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(customer.ID), map[string]any{
		"type":       "customer_registered",
		"customerID": customer.ID,
	})

	l.Info("customer_register_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đăng ký thành công. Vui lòng kiểm tra email để xác thực.",
	})
}

func (h *CustomerAuthHandler) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_verify_email")

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.Where("email = ? AND is_email_verified = ?", req.Email, false).First(&customer).Error; err != nil {
		l.Warn("customer_verify_email_failed", "status", 400, "reason", "not_found_or_verified")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại hoặc đã được xác thực.")
	}

	if err := h.OTP.Verify(otp.PurposeRegister, req.Email, req.OTP); err != nil {
		l.Warn("customer_verify_email_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	customer.IsEmailVerified = true
	if err := h.DB.Save(&customer).Error; err != nil {
		l.Error("customer_verify_email_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("customer_verify_email_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xác thực email thành công. Bạn có thể đăng nhập.",
	})
}

func (h *CustomerAuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		l.Warn("customer_login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "Sai email hoặc mật khẩu.")
	}
	if !hash.CheckPassword(customer.Password, req.Password) {
		l.Warn("customer_login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "Sai email hoặc mật khẩu.")
	}
	if !customer.IsEmailVerified {
		l.Warn("customer_login_failed", "status", 400, "reason", "email_unverified")
		return echo.NewHTTPError(http.StatusBadRequest, "Email chưa được xác thực.")
	}

	if err := h.OTP.Issue(otp.PurposeLogin2FA, customer.Email, "Mã OTP đăng nhập 2FA"); err != nil {
		l.Error("customer_login_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("customer_login_otp_issued", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Vui lòng nhập mã OTP đã gửi đến email của bạn.",
	})
}

func (h *CustomerAuthHandler) Verify2FA(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_verify_2fa")

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		l.Warn("customer_verify_2fa_failed", "status", 400, "reason", "email_not_found")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại.")
	}

	if err := h.OTP.Verify(otp.PurposeLogin2FA, req.Email, req.OTP); err != nil {
		l.Warn("customer_verify_2fa_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	signed, err := h.Tokens.SignCustomer(&customer)
	if err != nil {
		l.Error("customer_verify_2fa_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("customer_login_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Đăng nhập thành công.",
		"token":      signed,
		"customerId": customer.ID,
	})
}

func (h *CustomerAuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_forgot_password")

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		l.Warn("customer_forgot_password_failed", "status", 400, "reason", "email_not_found")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại.")
	}

	if err := h.OTP.Issue(otp.PurposeResetPassword, customer.Email, "Mã OTP đặt lại mật khẩu"); err != nil {
		l.Error("customer_forgot_password_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Mã OTP đã được gửi đến email của bạn.",
	})
}

func (h *CustomerAuthHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer_reset_password")

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		l.Warn("customer_reset_password_failed", "status", 400, "reason", "email_not_found")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại.")
	}

	if req.NewPassword != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu xác nhận không khớp.")
	}
	if len(req.NewPassword) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
	}

	// Validate the new password first so a mismatch does not consume the code.
	if err := h.OTP.Verify(otp.PurposeResetPassword, req.Email, req.OTP); err != nil {
		l.Warn("customer_reset_password_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		l.Error("customer_reset_password_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	customer.Password = pwHash
	if err := h.DB.Save(&customer).Error; err != nil {
		l.Error("customer_reset_password_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("customer_reset_password_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đặt lại mật khẩu thành công.",
	})
}
