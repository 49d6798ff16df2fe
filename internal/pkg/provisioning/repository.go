package provisioning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
)

// Repository provides the DB operations used by the provisioning service.
type Repository interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
	CreateTransaction(t *models.Transaction) error
	SaveTransaction(t *models.Transaction) error
	GetTransactionByID(id uuid.UUID) (*models.Transaction, error)
	GetTransactionByJobID(jobID string) (*models.Transaction, error)
	GetTransactionByExternalID(externalID int64) (*models.Transaction, error)
	GetLatestTransactionBySiteName(siteName string) (*models.Transaction, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a provisioning repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) CreateTransaction(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *gormRepository) SaveTransaction(t *models.Transaction) error {
	return r.db.Save(t).Error
}

func (r *gormRepository) GetTransactionByID(id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) GetTransactionByJobID(jobID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("site_creation_job_id = ?", jobID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) GetTransactionByExternalID(externalID int64) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("transaction_id = ?", externalID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) GetLatestTransactionBySiteName(siteName string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("site_name = ?", siteName).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "source_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("source = ? AND source_event_id = ?", event.Source, event.SourceEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
