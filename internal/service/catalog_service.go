package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"
	"smartdecor/pkg/cloudinary"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

var (
	ErrInvalidCategory  = errors.New("category does not exist")
	ErrInvalidMediaType = errors.New("media type must be IMAGE or VIDEO")
	ErrMediaDisabled    = errors.New("media uploads are not configured")
)

// ClampPage applies the default and maximum page size.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ProductInput is the writable part of a product. Nil Images or Videos leaves the stored set untouched.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uint
	Stock       int
	ImageURL    string
	Colors      string
	Warranty    string
	Images      []string
	Videos      []string
}

type CatalogService struct {
	db         *gorm.DB
	categories *repository.CategoryRepository
	products   *repository.ProductRepository
	media      cloudinary.Client
	log        *zap.Logger
}

// NewCatalogService wires categories and products; media may be nil when Cloudinary is not configured.
func NewCatalogService(db *gorm.DB, categories *repository.CategoryRepository, products *repository.ProductRepository, media cloudinary.Client, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, categories: categories, products: products, media: media, log: log.Named("catalog")}
}

func (s *CatalogService) CreateCategory(name, description string) (*models.Category, error) {
	c := &models.Category{Name: name, Description: description}
	if err := s.categories.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) GetCategory(id uint) (*models.Category, error) {
	c, err := s.categories.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CatalogService) ListCategories(limit, offset int) ([]models.Category, error) {
	limit, offset = ClampPage(limit, offset)
	return s.categories.List(limit, offset)
}

func (s *CatalogService) UpdateCategory(id uint, name, description *string) (*models.Category, error) {
	c, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}
	setIfPresent(&c.Name, name)
	setIfPresent(&c.Description, description)
	if err := s.categories.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(id uint) error {
	err := s.categories.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *CatalogService) CreateProduct(in ProductInput) (*models.Product, error) {
	if err := s.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}
	p := &models.Product{}
	applyProductInput(p, in)
	for _, u := range in.Images {
		p.Images = append(p.Images, models.ProductImage{URL: u})
	}
	for _, u := range in.Videos {
		p.Videos = append(p.Videos, models.ProductVideo{URL: u})
	}
	if err := s.products.Create(p); err != nil {
		return nil, err
	}
	return s.products.GetByID(p.ID)
}

func (s *CatalogService) GetProduct(id uint) (*models.Product, error) {
	p, err := s.products.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *CatalogService) ListProducts(f repository.ProductFilter) ([]models.Product, error) {
	f.Limit, f.Offset = ClampPage(f.Limit, f.Offset)
	return s.products.List(f)
}

// UpdateProduct overwrites scalar fields and replaces media sets that are provided, in one transaction.
func (s *CatalogService) UpdateProduct(id uint, in ProductInput) (*models.Product, error) {
	p, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != p.CategoryID {
		if err := s.checkCategory(in.CategoryID); err != nil {
			return nil, err
		}
	}
	applyProductInput(p, in)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.products.WithTx(tx)
		if err := repo.Update(p); err != nil {
			return err
		}
		if in.Images != nil {
			if err := repo.ReplaceImages(p.ID, in.Images); err != nil {
				return err
			}
		}
		if in.Videos != nil {
			return repo.ReplaceVideos(p.ID, in.Videos)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.products.GetByID(id)
}

func (s *CatalogService) DeleteProduct(id uint) error {
	err := s.products.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// AddMedia uploads file to Cloudinary under the product's folder and attaches the resulting URL.
func (s *CatalogService) AddMedia(ctx context.Context, productID uint, mediaType string, file io.Reader) (*cloudinary.Asset, error) {
	if s.media == nil {
		return nil, ErrMediaDisabled
	}
	if _, err := s.GetProduct(productID); err != nil {
		return nil, err
	}
	folder := fmt.Sprintf("products/%d", productID)
	var (
		asset *cloudinary.Asset
		err   error
	)
	switch mediaType {
	case domain.MediaTypeImage:
		asset, err = s.media.UploadImage(ctx, file, folder, "img_"+uuid.NewString())
		if err == nil {
			err = s.products.AddImage(productID, asset.URL)
		}
	case domain.MediaTypeVideo:
		asset, err = s.media.UploadVideo(ctx, file, folder, "vid_"+uuid.NewString())
		if err == nil {
			err = s.products.AddVideo(productID, asset.URL)
		}
	default:
		return nil, ErrInvalidMediaType
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("product media attached",
		zap.Uint("product_id", productID),
		zap.String("type", mediaType),
		zap.String("public_id", asset.PublicID))
	return asset, nil
}

// RemoveMedia detaches one image or video and deletes the stored asset when it lives on Cloudinary.
func (s *CatalogService) RemoveMedia(ctx context.Context, productID uint, mediaType string, mediaID uint) error {
	var (
		url string
		err error
	)
	switch mediaType {
	case domain.MediaTypeImage:
		url, err = s.products.RemoveImage(productID, mediaID)
	case domain.MediaTypeVideo:
		url, err = s.products.RemoveVideo(productID, mediaID)
	default:
		return ErrInvalidMediaType
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if s.media == nil {
		return nil
	}
	if err := s.media.DeleteByURL(ctx, url); err != nil && !errors.Is(err, cloudinary.ErrNotCloudinaryURL) {
		s.log.Warn("stored asset not deleted", zap.String("url", url), zap.Error(err))
	}
	return nil
}

func (s *CatalogService) checkCategory(id uint) error {
	if _, err := s.categories.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	return nil
}

func applyProductInput(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	p.Stock = in.Stock
	p.ImageURL = in.ImageURL
	p.Colors = in.Colors
	p.Warranty = in.Warranty
}
