package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/search"
)

type ProductHandler struct {
	DB        *gorm.DB
	ES        *elasticsearch.Client
	Authz     *authz.Service
	ImagesDir string
}

const defaultPageSize = 20

func pageParams(c echo.Context) (page, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.QueryParam("limit"))
	if size < 1 || size > 100 {
		size = defaultPageSize
	}
	return page, size
}

type productView struct {
	ID            uint     `json:"id"`
	BrandID       uint     `json:"brand_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PriceSell     float64  `json:"price_sell"`
	PriceCost     *float64 `json:"price_cost,omitempty"`
	Image         string   `json:"image"`
	StockQuantity int      `json:"stock_quantity"`
}

func (h *ProductHandler) toView(p models.Product, withCost bool) productView {
	v := productView{
		ID:          p.ID,
		BrandID:     p.BrandID,
		Name:        p.Name,
		Description: p.Description,
		PriceSell:   p.PriceSell,
		Image:       p.Image,
	}
	if withCost {
		v.PriceCost = p.PriceCost
	}
	var inv models.Inventory
	if err := h.DB.Where("product_id = ?", p.ID).First(&inv).Error; err == nil {
		v.StockQuantity = inv.StockQuantity
	}
	return v
}

func (h *ProductHandler) ListProducts(c echo.Context) error {
	page, size := pageParams(c)

	q := h.DB.Model(&models.Product{})
	if brandID, err := strconv.Atoi(c.QueryParam("brand_id")); err == nil && brandID > 0 {
		q = q.Where("brand_id = ?", brandID)
	}

	var total int64
	q.Count(&total)

	var products []models.Product
	if err := q.Order("id").Offset((page - 1) * size).Limit(size).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, h.toView(p, false))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"page":     page,
		"limit":    size,
		"products": views,
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Sản phẩm không tồn tại.")
	}
	return c.JSON(http.StatusOK, h.toView(product, false))
}

// SearchProducts runs a fuzzy full-text query against Elasticsearch, falling
// back to a LIKE scan when no search cluster is configured.
func (h *ProductHandler) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_search")

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Thiếu từ khóa tìm kiếm.")
	}
	page, size := pageParams(c)

	if h.ES != nil {
		total, products, err := search.Search(ctx, h.ES, query, (page-1)*size, size)
		if err == nil {
			views := make([]productView, 0, len(products))
			for _, p := range products {
				views = append(views, h.toView(p, false))
			}
			l.Info("product_search_success", "query", query, "hits", total)
			return c.JSON(http.StatusOK, echo.Map{
				"total":    total,
				"page":     page,
				"limit":    size,
				"products": views,
			})
		}
		l.Warn("product_search_es_failed", "query", query, "error", err)
	}

	var products []models.Product
	pattern := "%" + query + "%"
	dbq := h.DB.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	var total int64
	dbq.Model(&models.Product{}).Count(&total)
	if err := dbq.Order("id").Offset((page - 1) * size).Limit(size).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, h.toView(p, false))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"page":     page,
		"limit":    size,
		"products": views,
	})
}

// ListMyProducts returns products across every brand the caller manages,
// including cost prices.
func (h *ProductHandler) ListMyProducts(c echo.Context) error {
	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	brandIDs, err := h.Authz.ManagedBrandIDs(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	if len(brandIDs) == 0 {
		return c.JSON(http.StatusOK, []productView{})
	}

	var products []models.Product
	if err := h.DB.Where("brand_id IN ?", brandIDs).Order("id").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, h.toView(p, true))
	}
	return c.JSON(http.StatusOK, views)
}

type productRequest struct {
	BrandID     uint     `json:"brand_id" form:"brand_id"`
	Name        string   `json:"name" form:"name"`
	Description string   `json:"description" form:"description"`
	PriceSell   float64  `json:"price_sell" form:"price_sell"`
	PriceCost   *float64 `json:"price_cost" form:"price_cost"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_create")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Name == "" || req.BrandID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Tên sản phẩm và thương hiệu là bắt buộc.")
	}
	if req.PriceSell <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Giá bán phải lớn hơn 0.")
	}

	if err := h.Authz.CanManageBrand(id, req.BrandID, models.StaffRoleBrandManager); err != nil {
		if errors.Is(err, authz.ErrBrandNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Thương hiệu không tồn tại.")
		}
		l.Warn("product_create_failed", "status", 403, "reason", "forbidden", "brandID", req.BrandID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	product := models.Product{
		BrandID:     req.BrandID,
		Name:        req.Name,
		Description: req.Description,
		PriceSell:   req.PriceSell,
		PriceCost:   req.PriceCost,
	}

	if file, err := c.FormFile("image"); err == nil {
		path, err := saveImage(file, h.ImagesDir, "products")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Ảnh không hợp lệ.")
		}
		product.Image = path
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		inv := models.Inventory{ProductID: product.ID, StockQuantity: 0, LastUpdated: time.Now()}
		return tx.Create(&inv).Error
	})
	if err != nil {
		l.Error("product_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	if h.ES != nil {
		if err := search.IndexProduct(ctx, h.ES, &product); err != nil {
			l.Warn("product_index_failed", "productID", product.ID, "error", err)
		}
	}

	l.Info("product_create_success", "productID", product.ID, "brandID", product.BrandID)
	return c.JSON(http.StatusCreated, h.toView(product, true))
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_update")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Sản phẩm không tồn tại.")
	}

	if err := h.Authz.CanManageBrand(id, product.BrandID, models.StaffRoleBrandManager); err != nil {
		l.Warn("product_update_failed", "status", 403, "reason", "forbidden", "productID", product.ID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.PriceSell > 0 {
		product.PriceSell = req.PriceSell
	}
	if req.PriceCost != nil {
		product.PriceCost = req.PriceCost
	}
	if file, err := c.FormFile("image"); err == nil {
		path, err := saveImage(file, h.ImagesDir, "products")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Ảnh không hợp lệ.")
		}
		product.Image = path
	}

	if err := h.DB.Save(&product).Error; err != nil {
		l.Error("product_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	if h.ES != nil {
		if err := search.IndexProduct(ctx, h.ES, &product); err != nil {
			l.Warn("product_index_failed", "productID", product.ID, "error", err)
		}
	}

	l.Info("product_update_success", "productID", product.ID)
	return c.JSON(http.StatusOK, h.toView(product, true))
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_delete")

	id, err := userIdentity(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Sản phẩm không tồn tại.")
	}

	if err := h.Authz.CanManageBrand(id, product.BrandID, models.StaffRoleBrandManager); err != nil {
		l.Warn("product_delete_failed", "status", 403, "reason", "forbidden", "productID", product.ID, "userID", id.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Bạn không có quyền quản lý thương hiệu này.")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.Inventory{}).Error; err != nil {
			return err
		}
		// Order items keep their snapshot; only the product link is cleared.
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).
			Update("product_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	if h.ES != nil {
		if err := search.DeleteProduct(ctx, h.ES, product.ID); err != nil {
			l.Warn("product_unindex_failed", "productID", product.ID, "error", err)
		}
	}

	l.Info("product_delete_success", "productID", product.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa sản phẩm thành công.",
	})
}
