package repository

import (
	"smartdecor/internal/models"

	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Create(c *models.Cart) error {
	return r.db.Create(c).Error
}

func (r *CartRepository) GetByUserID(userID uint) (*models.Cart, error) {
	var c models.Cart
	err := r.db.Preload("Items.Product").Where("user_id = ?", userID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartRepository) Delete(cartID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, cartID).Error
	})
}

func (r *CartRepository) GetItem(cartID, productID uint) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *CartRepository) SaveItem(it *models.CartItem) error {
	return r.db.Omit("Product").Save(it).Error
}

func (r *CartRepository) DeleteItem(cartID, productID uint) error {
	res := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
