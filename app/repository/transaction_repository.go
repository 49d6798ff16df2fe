package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new transaction in the database
func (r *transactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByUserID retrieves a user's transactions newest first, each joined with
// the current activity flag of its site when a snapshot row exists.
func (r *transactionRepository) GetByUserID(userID uuid.UUID, offset, limit int) ([]TransactionWithSiteStatus, error) {
	var rows []TransactionWithSiteStatus
	err := r.db.Model(&models.Transaction{}).
		Select("transactions.*, COALESCE(site_data.active, false) AS site_active").
		Joins("LEFT JOIN site_data ON site_data.site_name = transactions.site_name").
		Where("transactions.user_id = ?", userID).
		Order("transactions.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountByUserID returns the number of transactions for a user
func (r *transactionRepository) CountByUserID(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Count returns the total number of transactions
func (r *transactionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Count(&count).Error
	return count, err
}
