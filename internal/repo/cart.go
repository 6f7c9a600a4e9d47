package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/models"
)

// GetCart joins each row with its product in one query. Rows whose product
// no longer exists are dropped by the inner join.
func (r *GormRepo) GetCart(ctx context.Context, userID uint) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0)
	err := r.DB.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.id, cart_items.user_id, cart_items.product_id, products.name AS product_name, products.price AS product_price").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) AddToCart(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	item := models.CartItem{UserID: userID, ProductID: productID}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prod models.Product
		if err := tx.Select("id").First(&prod, productID).Error; err != nil {
			return err
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// DeleteOneFromCart removes the oldest matching row only.
func (r *GormRepo) DeleteOneFromCart(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) DeleteAllFromCart(ctx context.Context, userID uint) (int64, error) {
	var cleared int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&models.CartItem{})
		cleared = res.RowsAffected
		return res.Error
	})
	return cleared, err
}
