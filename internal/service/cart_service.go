package service

import (
	"errors"

	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrCartExists      = errors.New("cart already exists")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product does not exist")
)

type CartService struct {
	carts    *repository.CartRepository
	products *repository.ProductRepository
}

func NewCartService(carts *repository.CartRepository, products *repository.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) Create(userID uint) (*models.Cart, error) {
	if _, err := s.carts.GetByUserID(userID); err == nil {
		return nil, ErrCartExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &models.Cart{UserID: userID}
	if err := s.carts.Create(c); err != nil {
		return nil, err
	}
	c.Items = []models.CartItem{}
	return c, nil
}

func (s *CartService) Get(userID uint) (*models.Cart, error) {
	c, err := s.carts.GetByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CartService) Delete(userID uint) error {
	c, err := s.Get(userID)
	if err != nil {
		return err
	}
	return s.carts.Delete(c.ID)
}

// AddItem puts quantity of the product in the cart, adding to any quantity already there.
func (s *CartService) AddItem(userID, productID uint, quantity int) (*models.Cart, error) {
	return s.upsertItem(userID, productID, quantity, true)
}

// SetItem sets the quantity of a product already in the cart.
func (s *CartService) SetItem(userID, productID uint, quantity int) (*models.Cart, error) {
	return s.upsertItem(userID, productID, quantity, false)
}

func (s *CartService) RemoveItem(userID, productID uint) (*models.Cart, error) {
	c, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.DeleteItem(c.ID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(userID)
}

func (s *CartService) upsertItem(userID, productID uint, quantity int, increment bool) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	c, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidProduct
		}
		return nil, err
	}
	it, err := s.carts.GetItem(c.ID, productID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound) && !increment:
		return nil, ErrNotFound
	case errors.Is(err, gorm.ErrRecordNotFound):
		it = &models.CartItem{CartID: c.ID, ProductID: productID, Quantity: quantity}
	case err != nil:
		return nil, err
	case increment:
		it.Quantity += quantity
	default:
		it.Quantity = quantity
	}
	if err := s.carts.SaveItem(it); err != nil {
		return nil, err
	}
	return s.Get(userID)
}
