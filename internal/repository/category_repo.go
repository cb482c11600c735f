package repository

import (
	"smartdecor/internal/models"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(c *models.Category) error {
	return r.db.Create(c).Error
}

func (r *CategoryRepository) GetByID(id uint) (*models.Category, error) {
	var c models.Category
	err := r.db.First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) List(limit, offset int) ([]models.Category, error) {
	var list []models.Category
	err := r.db.Order("id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *CategoryRepository) Update(c *models.Category) error {
	return r.db.Save(c).Error
}

func (r *CategoryRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
