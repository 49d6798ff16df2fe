package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SiteData is the last-known usage snapshot of one tenant site. site_name is
// the natural key: the webhook ingestion path and the polling refresh path
// both converge on the same row, so it is unique globally rather than per
// user. Rows are pruned when a consolidated snapshot for the owning user no
// longer lists the site.
type SiteData struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	SiteName string    `gorm:"type:varchar(253);uniqueIndex;not null" json:"site_name"`
	UserID   uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`

	TotalUsersCount    int    `json:"total_users_count"`
	ActiveUsersCount   int    `json:"active_users_count"`
	ActiveModulesCount int    `json:"active_modules_count"`
	Active             bool   `gorm:"default:false" json:"active"`
	Location           string `gorm:"type:varchar(100)" json:"location"`
	RefreshCount       int64  `gorm:"default:0" json:"refresh_count"`

	// Raw list payloads kept for audit/debug alongside the counters.
	TotalUsers    datatypes.JSON `gorm:"type:json" json:"total_users,omitempty"`
	ActiveUsers   datatypes.JSON `gorm:"type:json" json:"active_users,omitempty"`
	ActiveModules datatypes.JSON `gorm:"type:json" json:"active_modules,omitempty"`
	SitesData     datatypes.JSON `gorm:"type:json" json:"sites_data,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *SiteData) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// UserSiteSummary is the per-user aggregate carried by consolidated
// snapshots (total/active site counts). One row per user, replaced on every
// ingestion, instead of duplicating the totals onto every SiteData row.
type UserSiteSummary struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	TotalSites  int       `json:"total_sites"`
	ActiveSites int       `json:"active_sites"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
