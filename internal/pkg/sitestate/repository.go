package sitestate

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
)

type Repository interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)

	ListSitesByUser(userID uuid.UUID) ([]models.SiteData, error)
	GetSiteByName(siteName string) (*models.SiteData, error)
	CreateSite(site *models.SiteData) error
	SaveSite(site *models.SiteData) error
	// DeleteSitesNotIn removes the user's sites whose names are absent from
	// keep, returning how many rows were removed. An empty keep set removes
	// all of the user's sites.
	DeleteSitesNotIn(userID uuid.UUID, keep []string) (int64, error)

	GetSummary(userID uuid.UUID) (*models.UserSiteSummary, error)
	UpsertSummary(userID uuid.UUID, totalSites, activeSites int) error
}

type gormRepository struct {
	db *gorm.DB
}

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

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) ListSitesByUser(userID uuid.UUID) ([]models.SiteData, error) {
	var sites []models.SiteData
	if err := r.db.Where("user_id = ?", userID).Order("site_name ASC").Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *gormRepository) GetSiteByName(siteName string) (*models.SiteData, error) {
	var site models.SiteData
	if err := r.db.Where("site_name = ?", siteName).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *gormRepository) CreateSite(site *models.SiteData) error {
	return r.db.Create(site).Error
}

func (r *gormRepository) SaveSite(site *models.SiteData) error {
	return r.db.Save(site).Error
}

func (r *gormRepository) DeleteSitesNotIn(userID uuid.UUID, keep []string) (int64, error) {
	q := r.db.Where("user_id = ?", userID)
	if len(keep) > 0 {
		q = q.Where("site_name NOT IN ?", keep)
	}
	result := q.Delete(&models.SiteData{})
	return result.RowsAffected, result.Error
}

func (r *gormRepository) GetSummary(userID uuid.UUID) (*models.UserSiteSummary, error) {
	var summary models.UserSiteSummary
	if err := r.db.Where("user_id = ?", userID).First(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *gormRepository) UpsertSummary(userID uuid.UUID, totalSites, activeSites int) error {
	summary := models.UserSiteSummary{
		UserID:      userID,
		TotalSites:  totalSites,
		ActiveSites: activeSites,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_sites", "active_sites", "updated_at"}),
	}).Create(&summary).Error
}
