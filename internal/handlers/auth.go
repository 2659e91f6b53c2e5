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

// AuthHandler serves seller-side accounts: brand owners and staff register
// here, verify their e-mail, and log in with OTP 2FA.
type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Issuer
	OTP      *otp.Service
	Producer *events.Producer
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if req.Password != req.ConfirmPassword {
		l.Warn("register_failed", "status", 400, "reason", "password_mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu xác nhận không khớp.")
	}
	if len(req.Password) < 6 {
		l.Warn("register_failed", "status", 400, "reason", "password_too_short")
		return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		l.Warn("register_failed", "status", 400, "reason", "email_exists")
		return echo.NewHTTPError(http.StatusBadRequest, "Email đã tồn tại.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	user := models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  pwHash,
		Role:      models.RoleStaff,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	if err := h.OTP.Issue(otp.PurposeRegister, user.Email, "Xác thực email đăng ký"); err != nil {
		l.Error("register_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đăng ký thành công. Vui lòng kiểm tra email để xác thực.",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify_email")

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.Where("email = ? AND is_email_verified = ?", req.Email, false).First(&user).Error; err != nil {
		l.Warn("verify_email_failed", "status", 400, "reason", "not_found_or_verified")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại hoặc đã được xác thực.")
	}

	if err := h.OTP.Verify(otp.PurposeRegister, req.Email, req.OTP); err != nil {
		l.Warn("verify_email_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	user.IsEmailVerified = true
	user.UpdatedAt = time.Now()
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("verify_email_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("verify_email_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xác thực email thành công. Bạn có thể đăng nhập.",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and, when they match, issues the second factor.
// The JWT is only released by Verify2FA.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "Sai email hoặc mật khẩu.")
	}
	if !hash.CheckPassword(user.Password, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "Sai email hoặc mật khẩu.")
	}
	if !user.IsEmailVerified {
		l.Warn("login_failed", "status", 400, "reason", "email_unverified")
		return echo.NewHTTPError(http.StatusBadRequest, "Email chưa được xác thực.")
	}

	if err := h.OTP.Issue(otp.PurposeLogin2FA, user.Email, "Mã OTP đăng nhập 2FA"); err != nil {
		l.Error("login_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("login_otp_issued", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Vui lòng nhập mã OTP đã gửi đến email của bạn.",
	})
}

func (h *AuthHandler) Verify2FA(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify_2fa")

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("verify_2fa_failed", "status", 400, "reason", "email_not_found")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại.")
	}

	if err := h.OTP.Verify(otp.PurposeLogin2FA, req.Email, req.OTP); err != nil {
		l.Warn("verify_2fa_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	signed, err := h.Tokens.SignUser(&user)
	if err != nil {
		l.Error("verify_2fa_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	l.Info("login_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đăng nhập thành công.",
		"token":   signed,
		"userId":  user.ID,
		"role":    user.Role,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("forgot_password_failed", "status", 400, "reason", "email_not_found")
		return echo.NewHTTPError(http.StatusBadRequest, "Email không tồn tại.")
	}

	if err := h.OTP.Issue(otp.PurposeResetPassword, user.Email, "Mã OTP đặt lại mật khẩu"); err != nil {
		l.Error("forgot_password_failed", "status", 500, "reason", "otp_issue", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("forgot_password_otp_issued", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Mã OTP đã được gửi đến email của bạn.",
	})
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_reset_password")

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("reset_password_failed", "status", 400, "reason", "email_not_found")
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
		l.Warn("reset_password_failed", "status", 400, "reason", "otp_invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "Mã OTP không đúng hoặc đã hết hạn.")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		l.Error("reset_password_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	user.Password = pwHash
	user.UpdatedAt = time.Now()
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("reset_password_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("reset_password_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đặt lại mật khẩu thành công.",
	})
}
