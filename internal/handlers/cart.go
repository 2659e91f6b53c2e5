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

type CartHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

type cartItemView struct {
	CartItemID  uint    `json:"cart_item_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	PriceSell   float64 `json:"price_sell"`
	Image       string  `json:"image"`
	Quantity    int     `json:"quantity"`
	BrandID     uint    `json:"brand_id"`
	BrandName   string  `json:"brand_name"`
}

type cartView struct {
	CartID     uint           `json:"cart_id"`
	CustomerID uint           `json:"customer_id"`
	Items      []cartItemView `json:"items"`
}

// loadOrCreateCart returns the customer's cart, creating an empty one on
// first access.
func loadOrCreateCart(db *gorm.DB, customerID uint) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Items").Where("customer_id = ?", customerID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cart = models.Cart{CustomerID: customerID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_get")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	cart, err := loadOrCreateCart(h.DB, id.ID)
	if err != nil {
		l.Error("cart_get_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	view := cartView{CartID: cart.ID, CustomerID: cart.CustomerID, Items: []cartItemView{}}
	for _, item := range cart.Items {
		var product models.Product
		if err := h.DB.First(&product, item.ProductID).Error; err != nil {
			continue
		}
		var brand models.Brand
		brandName := "Thương hiệu không xác định"
		if err := h.DB.First(&brand, product.BrandID).Error; err == nil {
			brandName = brand.Name
		}
		view.Items = append(view.Items, cartItemView{
			CartItemID:  item.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			PriceSell:   product.PriceSell,
			Image:       product.Image,
			Quantity:    item.Quantity,
			BrandID:     product.BrandID,
			BrandName:   brandName,
		})
	}

	l.Info("cart_get_success", "cartID", cart.ID, "items", len(view.Items))
	return c.JSON(http.StatusOK, view)
}

type addToCartRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Số lượng phải lớn hơn 0.")
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		l.Warn("cart_add_failed", "status", 404, "reason", "product_not_found", "productID", req.ProductID)
		return echo.NewHTTPError(http.StatusNotFound, "Sản phẩm không tồn tại.")
	}

	var inventory models.Inventory
	if err := h.DB.Where("product_id = ?", req.ProductID).First(&inventory).Error; err != nil || inventory.StockQuantity < req.Quantity {
		l.Warn("cart_add_failed", "status", 400, "reason", "insufficient_stock", "productID", req.ProductID)
		return echo.NewHTTPError(http.StatusBadRequest, "Số lượng tồn kho không đủ.")
	}

	cart, err := loadOrCreateCart(h.DB, id.ID)
	if err != nil {
		l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	var item models.CartItem
	tx := h.DB.Where("cart_id = ? AND product_id = ?", cart.ID, req.ProductID).First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if item.Quantity > inventory.StockQuantity {
			l.Warn("cart_add_failed", "status", 400, "reason", "exceeds_stock", "productID", req.ProductID)
			return echo.NewHTTPError(http.StatusBadRequest, "Tổng số lượng vượt quá tồn kho.")
		}
		if err := h.DB.Save(&item).Error; err != nil {
			l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
		}
	} else if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		item = models.CartItem{CartID: cart.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		if err := h.DB.Create(&item).Error; err != nil {
			l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
		}
	} else {
		l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", tx.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}

	h.DB.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("updated_at", time.Now())

	publish(c, h.Producer, events.TopicCartEvents, fmt.Sprint(id.ID), map[string]any{
		"type":       "cart_item_added",
		"customerID": id.ID,
		"productID":  req.ProductID,
		"quantity":   item.Quantity,
	})

	l.Info("cart_add_success", "cartID", cart.ID, "productID", req.ProductID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Thêm sản phẩm vào giỏ hàng thành công.",
	})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_update_item")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("cartItemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var req updateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}
	if req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Số lượng phải lớn hơn 0.")
	}

	var cart models.Cart
	if err := h.DB.Where("customer_id = ?", id.ID).First(&cart).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Giỏ hàng không tồn tại.")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Mục giỏ hàng không tồn tại.")
	}

	var inventory models.Inventory
	if err := h.DB.Where("product_id = ?", item.ProductID).First(&inventory).Error; err != nil || inventory.StockQuantity < req.Quantity {
		l.Warn("cart_update_failed", "status", 400, "reason", "insufficient_stock", "productID", item.ProductID)
		return echo.NewHTTPError(http.StatusBadRequest, "Số lượng tồn kho không đủ.")
	}

	item.Quantity = req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		l.Error("cart_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	h.DB.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("updated_at", time.Now())

	l.Info("cart_update_success", "cartID", cart.ID, "itemID", item.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Cập nhật giỏ hàng thành công.",
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_remove_item")

	id, err := customerIdentity(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("cartItemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Dữ liệu không hợp lệ.")
	}

	var cart models.Cart
	if err := h.DB.Where("customer_id = ?", id.ID).First(&cart).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Giỏ hàng không tồn tại.")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Mục giỏ hàng không tồn tại.")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		l.Error("cart_remove_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Đã xảy ra lỗi. Vui lòng thử lại sau.")
	}
	h.DB.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("updated_at", time.Now())

	publish(c, h.Producer, events.TopicCartEvents, fmt.Sprint(id.ID), map[string]any{
		"type":       "cart_item_removed",
		"customerID": id.ID,
		"itemID":     item.ID,
	})

	l.Info("cart_remove_success", "cartID", cart.ID, "itemID", item.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Xóa sản phẩm khỏi giỏ hàng thành công.",
	})
}
