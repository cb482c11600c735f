package repository

import (
	"smartdecor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx binds the repository to a caller-owned transaction.
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByCheckoutRequestID(checkoutRequestID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockByCheckoutRequestID loads the payment with SELECT ... FOR UPDATE so duplicate
// callbacks for the same checkout id serialize on the row. Must run inside a transaction.
func (r *PaymentRepository) LockByCheckoutRequestID(checkoutRequestID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("checkout_request_id = ?", checkoutRequestID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByOrderID(orderID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("order_id = ?", orderID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}
