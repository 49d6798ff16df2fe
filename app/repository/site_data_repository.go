package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
)

// siteDataRepository implements the SiteDataRepository interface
type siteDataRepository struct {
	db *gorm.DB
}

// NewSiteDataRepository creates a new site data repository instance
func NewSiteDataRepository(db *gorm.DB) SiteDataRepository {
	return &siteDataRepository{db: db}
}

// GetByUserID retrieves all site snapshots owned by a user
func (r *siteDataRepository) GetByUserID(userID uuid.UUID) ([]models.SiteData, error) {
	var sites []models.SiteData
	err := r.db.Where("user_id = ?", userID).Order("site_name ASC").Find(&sites).Error
	return sites, err
}

// GetBySiteName retrieves one site snapshot by its globally unique name
func (r *siteDataRepository) GetBySiteName(siteName string) (*models.SiteData, error) {
	var site models.SiteData
	if err := r.db.Where("site_name = ?", siteName).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// CountTotalByUser returns how many site rows a user owns
func (r *siteDataRepository) CountTotalByUser(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.SiteData{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountActiveByUser returns how many of a user's sites are currently active
func (r *siteDataRepository) CountActiveByUser(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.SiteData{}).Where("user_id = ? AND active = ?", userID, true).Count(&count).Error
	return count, err
}

// GetSummary retrieves the per-user aggregate reported by the last snapshot
func (r *siteDataRepository) GetSummary(userID uuid.UUID) (*models.UserSiteSummary, error) {
	var summary models.UserSiteSummary
	if err := r.db.Where("user_id = ?", userID).First(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListActiveModules returns the raw module listing per site for a user
func (r *siteDataRepository) ListActiveModules(userID uuid.UUID) ([]SiteModules, error) {
	var rows []SiteModules
	err := r.db.Model(&models.SiteData{}).
		Select("site_name, CAST(active_modules AS CHAR) AS active_modules").
		Where("user_id = ?", userID).
		Order("site_name ASC").
		Find(&rows).Error
	return rows, err
}
