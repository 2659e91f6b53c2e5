package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

// PermissionHandler assigns the fine-grained staff role an approved
// member holds inside their brand.
type PermissionHandler struct {
	DB *gorm.DB
}

func validStaffRole(s string) bool {
	return s == models.StaffRoleBrandManager || s == models.StaffRoleInventoryManager
}

func (h *PermissionHandler) getApprovedStaff(c echo.Context) (*models.User, error) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	if user.BrandID == nil || user.ApprovalStatus == nil || *user.ApprovalStatus != models.ApprovalApproved {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Tài khoản này chưa là nhân viên được phê duyệt.")
	}

	id, err := userIdentity(c)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		var brand models.Brand
		if err := h.DB.First(&brand, *user.BrandID).Error; err != nil {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		if brand.OwnerID != id.ID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "Chỉ chủ thương hiệu mới có quyền này.")
		}
	}
	return &user, nil
}

func (h *PermissionHandler) GetPermission(c echo.Context) error {
	user, err := h.getApprovedStaff(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":    user.ID,
		"brand_id":   user.BrandID,
		"staff_role": user.StaffRole,
	})
}

type setPermissionRequest struct {
	StaffRole string `json:"staff_role"`
}

func (h *PermissionHandler) SetPermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permission_set")

	user, err := h.getApprovedStaff(c)
	if err != nil {
		return err
	}

	var req setPermissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if !validStaffRole(req.StaffRole) {
		return echo.NewHTTPError(http.StatusBadRequest, "Vai trò nhân viên không hợp lệ.")
	}

	user.StaffRole = req.StaffRole
	if err := h.DB.Save(user).Error; err != nil {
		l.Error("permission_set_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("permission_set_success", "userID", user.ID, "staffRole", user.StaffRole)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Cập nhật vai trò nhân viên thành công.",
	})
}

func (h *PermissionHandler) ClearPermission(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "permission_clear")

	user, err := h.getApprovedStaff(c)
	if err != nil {
		return err
	}

	user.StaffRole = ""
	if err := h.DB.Save(user).Error; err != nil {
		l.Error("permission_clear_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("permission_clear_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đã thu hồi vai trò nhân viên.",
	})
}
