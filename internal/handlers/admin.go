package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/hash"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

// AdminHandler exposes account management for the Admin role. Route
// registration guards every method with RequireRoles(RoleAdmin).
type AdminHandler struct {
	DB *gorm.DB
}

type userView struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	StaffRole      string  `json:"staff_role,omitempty"`
	BrandID        *uint   `json:"brand_id,omitempty"`
	ApprovalStatus *string `json:"approval_status,omitempty"`
}

func toUserView(u models.User) userView {
	return userView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		StaffRole:      u.StaffRole,
		BrandID:        u.BrandID,
		ApprovalStatus: u.ApprovalStatus,
	}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("id").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Người dùng không tồn tại.")
	}
	return c.JSON(http.StatusOK, toUserView(user))
}

type adminUpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_update_user")

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req adminUpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Người dùng không tồn tại.")
	}

	if req.Email != "" && req.Email != user.Email {
		var count int64
		h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", req.Email, user.ID).Count(&count)
		if count > 0 {
			l.Warn("admin_update_user_failed", "status", 400, "reason", "email_taken", "userID", user.ID)
			return echo.NewHTTPError(http.StatusBadRequest, "Email đã được sử dụng.")
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
		}
		hashed, err := hash.HashPassword(req.Password)
		if err != nil {
			l.Error("admin_update_user_failed", "status", 500, "reason", "hash_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
		}
		user.Password = hashed
	}

	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("admin_update_user_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("admin_update_user_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Cập nhật người dùng thành công.",
	})
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_delete_user")

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Người dùng không tồn tại.")
	}
	if user.Role == models.RoleAdmin {
		l.Warn("admin_delete_user_failed", "status", 400, "reason", "target_is_admin", "userID", user.ID)
		return echo.NewHTTPError(http.StatusBadRequest, "Không thể xóa tài khoản Admin.")
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		l.Error("admin_delete_user_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("admin_delete_user_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa người dùng thành công.",
	})
}

type customerView struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LoyaltyPoints int    `json:"loyalty_points"`
}

func toCustomerView(cu models.Customer) customerView {
	return customerView{
		ID:            cu.ID,
		Name:          cu.Name,
		Email:         cu.Email,
		Phone:         cu.Phone,
		LoyaltyPoints: cu.LoyaltyPoints,
	}
}

func (h *AdminHandler) ListCustomers(c echo.Context) error {
	var customers []models.Customer
	if err := h.DB.Order("id").Find(&customers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]customerView, 0, len(customers))
	for _, cu := range customers {
		views = append(views, toCustomerView(cu))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *AdminHandler) GetCustomer(c echo.Context) error {
	customerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || customerID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	var customer models.Customer
	if err := h.DB.First(&customer, customerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Khách hàng không tồn tại.")
	}
	return c.JSON(http.StatusOK, toCustomerView(customer))
}

type adminUpdateCustomerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Password      string `json:"password"`
	LoyaltyPoints *int   `json:"loyalty_points"`
}

func (h *AdminHandler) UpdateCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_update_customer")

	customerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || customerID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req adminUpdateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.First(&customer, customerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Khách hàng không tồn tại.")
	}

	if req.Email != "" && req.Email != customer.Email {
		var count int64
		h.DB.Model(&models.Customer{}).Where("email = ? AND id <> ?", req.Email, customer.ID).Count(&count)
		if count > 0 {
			l.Warn("admin_update_customer_failed", "status", 400, "reason", "email_taken", "customerID", customer.ID)
			return echo.NewHTTPError(http.StatusBadRequest, "Email đã được sử dụng.")
		}
		customer.Email = req.Email
	}
	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}
	if req.LoyaltyPoints != nil {
		customer.LoyaltyPoints = *req.LoyaltyPoints
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")
		}
		hashed, err := hash.HashPassword(req.Password)
		if err != nil {
			l.Error("admin_update_customer_failed", "status", 500, "reason", "hash_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
		}
		customer.Password = hashed
	}

	if err := h.DB.Save(&customer).Error; err != nil {
		l.Error("admin_update_customer_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("admin_update_customer_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Cập nhật khách hàng thành công.",
	})
}

func (h *AdminHandler) DeleteCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_delete_customer")

	customerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || customerID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var customer models.Customer
	if err := h.DB.First(&customer, customerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Khách hàng không tồn tại.")
	}

	if err := h.DB.Delete(&customer).Error; err != nil {
		l.Error("admin_delete_customer_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("admin_delete_customer_success", "customerID", customer.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa khách hàng thành công.",
	})
}
