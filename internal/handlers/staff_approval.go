package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

// StaffApprovalHandler runs the join-a-brand workflow: a staff user
// applies to a brand, the owner approves or rejects, approved members
// show up in the brand's staff roster.
type StaffApprovalHandler struct {
	DB *gorm.DB
}

type applyRequest struct {
	BrandID uint `json:"brand_id"`
}

func (h *StaffApprovalHandler) Apply(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "staff_apply")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	var req applyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.BrandID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Thiếu thông tin thương hiệu.")
	}

	var brand models.Brand
	if err := h.DB.First(&brand, req.BrandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}
	if brand.OwnerID == id.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Bạn là chủ sở hữu của thương hiệu này.")
	}

	var user models.User
	if err := h.DB.First(&user, id.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	if user.BrandID != nil && user.ApprovalStatus != nil && *user.ApprovalStatus == models.ApprovalApproved {
		return echo.NewHTTPError(http.StatusBadRequest, "Bạn đã là nhân viên của một thương hiệu.")
	}

	status := models.ApprovalPending
	user.BrandID = &req.BrandID
	user.ApprovalStatus = &status
	user.StaffRole = ""
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("staff_apply_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("staff_apply_success", "userID", user.ID, "brandID", req.BrandID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đã gửi yêu cầu. Vui lòng chờ chủ thương hiệu phê duyệt.",
	})
}

func (h *StaffApprovalHandler) requireOwnerOrAdmin(c echo.Context, brandID uint) error {
	id, err := userIdentity(c)
	if err != nil {
		return err
	}
	if id.IsAdmin() {
		return nil
	}
	var brand models.Brand
	if err := h.DB.First(&brand, brandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}
	if brand.OwnerID != id.ID {
		return echo.NewHTTPError(http.StatusForbidden, "Chỉ chủ thương hiệu mới có quyền này.")
	}
	return nil
}

func (h *StaffApprovalHandler) PendingApplications(c echo.Context) error {
	brandID, err := strconv.Atoi(c.Param("brandId"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if err := h.requireOwnerOrAdmin(c, uint(brandID)); err != nil {
		return err
	}

	var users []models.User
	if err := h.DB.Where("brand_id = ? AND approval_status = ?", brandID, models.ApprovalPending).
		Order("id").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *StaffApprovalHandler) ApprovedStaff(c echo.Context) error {
	brandID, err := strconv.Atoi(c.Param("brandId"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if err := h.requireOwnerOrAdmin(c, uint(brandID)); err != nil {
		return err
	}

	var users []models.User
	if err := h.DB.Where("brand_id = ? AND approval_status = ?", brandID, models.ApprovalApproved).
		Order("id").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *StaffApprovalHandler) setApproval(c echo.Context, status string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "staff_approval")

	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	if user.BrandID == nil || user.ApprovalStatus == nil || *user.ApprovalStatus != models.ApprovalPending {
		return echo.NewHTTPError(http.StatusBadRequest, "Tài khoản này không có yêu cầu đang chờ duyệt.")
	}
	if err := h.requireOwnerOrAdmin(c, *user.BrandID); err != nil {
		return err
	}

	user.ApprovalStatus = &status
	if status == models.ApprovalRejected {
		user.BrandID = nil
		user.StaffRole = ""
	}
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("staff_approval_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("staff_approval_success", "userID", user.ID, "approval", status)
	msg := "Phê duyệt nhân viên thành công."
	if status == models.ApprovalRejected {
		msg = "Đã từ chối yêu cầu."
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *StaffApprovalHandler) Approve(c echo.Context) error {
	return h.setApproval(c, models.ApprovalApproved)
}

func (h *StaffApprovalHandler) Reject(c echo.Context) error {
	return h.setApproval(c, models.ApprovalRejected)
}

// Remove detaches an approved staff member from the brand.
func (h *StaffApprovalHandler) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "staff_remove")

	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tài khoản không tồn tại.")
	}
	if user.BrandID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Tài khoản này không thuộc thương hiệu nào.")
	}
	if err := h.requireOwnerOrAdmin(c, *user.BrandID); err != nil {
		return err
	}

	user.BrandID = nil
	user.ApprovalStatus = nil
	user.StaffRole = ""
	if err := h.DB.Save(&user).Error; err != nil {
		l.Error("staff_remove_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("staff_remove_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Đã xóa nhân viên khỏi thương hiệu.",
	})
}
