package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// TransactionWithSiteStatus pairs a transaction with the current activity
// flag of its site, when a site row exists.
type TransactionWithSiteStatus struct {
	models.Transaction
	SiteActive bool `json:"site_active"`
}

// TransactionRepository defines the interface for transaction-related database operations
type TransactionRepository interface {
	Create(txn *models.Transaction) error
	GetByID(id uuid.UUID) (*models.Transaction, error)
	GetByUserID(userID uuid.UUID, offset, limit int) ([]TransactionWithSiteStatus, error)
	CountByUserID(userID uuid.UUID) (int64, error)
	Count() (int64, error)
}

// SiteDataRepository defines the interface for site snapshot reads
type SiteDataRepository interface {
	GetByUserID(userID uuid.UUID) ([]models.SiteData, error)
	GetBySiteName(siteName string) (*models.SiteData, error)
	CountTotalByUser(userID uuid.UUID) (int64, error)
	CountActiveByUser(userID uuid.UUID) (int64, error)
	GetSummary(userID uuid.UUID) (*models.UserSiteSummary, error)
	ListActiveModules(userID uuid.UUID) ([]SiteModules, error)
}

// SiteModules is the per-site module listing returned by the dashboard.
type SiteModules struct {
	SiteName      string `json:"site_name"`
	ActiveModules string `json:"active_modules"`
}

// Repositories bundles all repository instances
type Repositories struct {
	User        UserRepository
	Transaction TransactionRepository
	SiteData    SiteDataRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Transaction: NewTransactionRepository(db),
		SiteData:    NewSiteDataRepository(db),
	}
}
