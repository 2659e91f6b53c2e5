package handlers

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/models"
)

var errInsufficientStock = errors.New("insufficient stock")

// decrementStock atomically subtracts qty from the product's stock. The
// WHERE clause guards against going negative under concurrent checkouts;
// zero rows affected means another transaction took the stock first.
func decrementStock(tx *gorm.DB, productID uint, qty int) error {
	res := tx.Model(&models.Inventory{}).
		Where("product_id = ? AND stock_quantity >= ?", productID, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"last_updated":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errInsufficientStock
	}
	return nil
}

// restoreStock returns qty units to the product's inventory. Missing rows
// are ignored: the product may have been deleted since the order was placed.
func restoreStock(tx *gorm.DB, productID uint, qty int) error {
	return tx.Model(&models.Inventory{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"last_updated":   time.Now(),
		}).Error
}
