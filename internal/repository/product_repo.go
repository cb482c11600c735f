package repository

import (
	"strings"

	"smartdecor/internal/models"

	"gorm.io/gorm"
)

type ProductFilter struct {
	Name     string // case-insensitive substring
	Category string // exact category name, case-insensitive
	Limit    int
	Offset   int
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

func (r *ProductRepository) Create(p *models.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) GetByID(id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.Preload("Category").Preload("Images").Preload("Videos").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(f ProductFilter) ([]models.Product, error) {
	q := r.db.Model(&models.Product{}).Preload("Category").Preload("Images").Preload("Videos")
	if f.Name != "" {
		q = q.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	}
	if f.Category != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("LOWER(categories.name) = ?", strings.ToLower(f.Category))
	}
	var list []models.Product
	err := q.Order("products.id ASC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, err
}

// ListInStock returns id and updated_at of every product with stock left.
func (r *ProductRepository) ListInStock() ([]models.Product, error) {
	var list []models.Product
	err := r.db.Select("id", "updated_at").Where("stock > 0").Order("id ASC").Find(&list).Error
	return list, err
}

func (r *ProductRepository) Update(p *models.Product) error {
	return r.db.Omit("Category", "Images", "Videos").Save(p).Error
}

// ReplaceImages swaps the product's image set for urls.
func (r *ProductRepository) ReplaceImages(productID uint, urls []string) error {
	if err := r.db.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	for _, u := range urls {
		if err := r.AddImage(productID, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) ReplaceVideos(productID uint, urls []string) error {
	if err := r.db.Where("product_id = ?", productID).Delete(&models.ProductVideo{}).Error; err != nil {
		return err
	}
	for _, u := range urls {
		if err := r.AddVideo(productID, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) AddImage(productID uint, url string) error {
	return r.db.Create(&models.ProductImage{ProductID: productID, URL: url}).Error
}

func (r *ProductRepository) AddVideo(productID uint, url string) error {
	return r.db.Create(&models.ProductVideo{ProductID: productID, URL: url}).Error
}

func (r *ProductRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVideo{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// RemoveImage deletes one image of the product and returns its URL.
func (r *ProductRepository) RemoveImage(productID, imageID uint) (string, error) {
	var img models.ProductImage
	if err := r.db.Where("id = ? AND product_id = ?", imageID, productID).First(&img).Error; err != nil {
		return "", err
	}
	return img.URL, r.db.Delete(&img).Error
}

func (r *ProductRepository) RemoveVideo(productID, videoID uint) (string, error) {
	var v models.ProductVideo
	if err := r.db.Where("id = ? AND product_id = ?", videoID, productID).First(&v).Error; err != nil {
		return "", err
	}
	return v.URL, r.db.Delete(&v).Error
}
