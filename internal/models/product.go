package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	ImageURL    string          `gorm:"size:512" json:"image_url"`
	Colors      string          `gorm:"size:255" json:"colors"`
	Warranty    string          `gorm:"size:255" json:"warranty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Category Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category"`
	Images   []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
	Videos   []ProductVideo `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"videos"`
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	URL       string `gorm:"size:512;not null" json:"url"`
}

type ProductVideo struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	URL       string `gorm:"size:512;not null" json:"url"`
}
