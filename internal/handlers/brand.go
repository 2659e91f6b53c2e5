package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
)

type BrandHandler struct {
	DB        *gorm.DB
	Authz     *authz.Service
	ImagesDir string
}

type brandView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	OwnerID         uint   `json:"owner_id"`
	BackgroundImage string `json:"background_image"`
	BackgroundColor string `json:"background_color"`
}

func toBrandView(b models.Brand) brandView {
	return brandView{
		ID:              b.ID,
		Name:            b.Name,
		Description:     b.Description,
		OwnerID:         b.OwnerID,
		BackgroundImage: b.BackgroundImage,
		BackgroundColor: b.BackgroundColor,
	}
}

func (h *BrandHandler) ListBrands(c echo.Context) error {
	var brands []models.Brand
	if err := h.DB.Order("id").Find(&brands).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]brandView, 0, len(brands))
	for _, b := range brands {
		views = append(views, toBrandView(b))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *BrandHandler) GetBrand(c echo.Context) error {
	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	var brand models.Brand
	if err := h.DB.First(&brand, brandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}
	return c.JSON(http.StatusOK, toBrandView(brand))
}

type brandRequest struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

func (h *BrandHandler) CreateBrand(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_create")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	var req brandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Tên thương hiệu không được để trống.")
	}

	var count int64
	h.DB.Model(&models.Brand{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		l.Warn("brand_create_failed", "status", 400, "reason", "name_taken", "name", req.Name)
		return echo.NewHTTPError(http.StatusBadRequest, "Tên thương hiệu đã tồn tại.")
	}

	brand := models.Brand{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     id.ID,
	}
	if err := h.DB.Create(&brand).Error; err != nil {
		l.Error("brand_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("brand_create_success", "brandID", brand.ID, "ownerID", id.ID)
	return c.JSON(http.StatusCreated, toBrandView(brand))
}

func (h *BrandHandler) UpdateBrand(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_update")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if err := h.Authz.CanManageBrand(id, uint(brandID), models.StaffRoleBrandManager); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		l.Warn("brand_update_failed", "status", 403, "reason", "forbidden", "brandID", brandID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	var brand models.Brand
	if err := h.DB.First(&brand, brandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}

	var req brandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Name != "" && req.Name != brand.Name {
		var count int64
		h.DB.Model(&models.Brand{}).Where("name = ? AND id <> ?", req.Name, brand.ID).Count(&count)
		if count > 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Tên thương hiệu đã tồn tại.")
		}
		brand.Name = req.Name
	}
	if req.Description != "" {
		brand.Description = req.Description
	}

	if err := h.DB.Save(&brand).Error; err != nil {
		l.Error("brand_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("brand_update_success", "brandID", brand.ID)
	return c.JSON(http.StatusOK, toBrandView(brand))
}

type brandBackgroundRequest struct {
	BackgroundColor string `json:"background_color" form:"background_color"`
}

// UpdateBackground accepts multipart form data with an optional image file
// and an optional background color.
func (h *BrandHandler) UpdateBackground(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_background")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	if err := h.Authz.CanManageBrand(id, uint(brandID), models.StaffRoleBrandManager); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	var brand models.Brand
	if err := h.DB.First(&brand, brandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}

	var req brandBackgroundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.BackgroundColor != "" {
		brand.BackgroundColor = req.BackgroundColor
	}

	if file, err := c.FormFile("background_image"); err == nil {
		path, err := saveImage(file, h.ImagesDir, "brands")
		if err != nil {
			l.Warn("brand_background_failed", "status", 400, "reason", "bad_image", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "Ảnh không hợp lệ.")
		}
		brand.BackgroundImage = path
	}

	if err := h.DB.Save(&brand).Error; err != nil {
		l.Error("brand_background_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("brand_background_success", "brandID", brand.ID)
	return c.JSON(http.StatusOK, toBrandView(brand))
}

func (h *BrandHandler) DeleteBrand(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "brand_delete")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	brandID, err := strconv.Atoi(c.Param("id"))
	if err != nil || brandID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var brand models.Brand
	if err := h.DB.First(&brand, brandID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
	}

	// Deletion is reserved for admins and the owner, not delegated staff.
	if !id.IsAdmin() && brand.OwnerID != id.ID {
		l.Warn("brand_delete_failed", "status", 403, "reason", "forbidden", "brandID", brandID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	var productCount int64
	h.DB.Model(&models.Product{}).Where("brand_id = ?", brand.ID).Count(&productCount)
	if productCount > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Không thể xóa thương hiệu còn sản phẩm.")
	}

	if err := h.DB.Delete(&brand).Error; err != nil {
		l.Error("brand_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	l.Info("brand_delete_success", "brandID", brand.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa thương hiệu thành công.",
	})
}
