package sitestate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
)

// Structural snapshot problems abort the whole ingestion; a single bad site
// entry does not.
var (
	ErrSnapshotNotSuccessful = errors.New("snapshot status is not success")
	ErrNoOwnerEmail          = errors.New("snapshot carries no owner email")
	ErrUnknownUser           = errors.New("snapshot owner email does not resolve to a user")
	ErrUserNotFound          = errors.New("user not found")
)

// SiteReporter reads live site data from the provisioning backend and from
// the tenant sites themselves. Implemented by frappe.Client.
type SiteReporter interface {
	FetchConsolidatedSiteData(ctx context.Context, email string) (*frappe.ConsolidatedSnapshot, error)
	FetchSiteReport(ctx context.Context, siteName string) (*frappe.SiteReport, error)
}

// IngestResult summarizes one snapshot ingestion.
type IngestResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Skipped int    `json:"skipped"`
}

// SiteView is one site's state as returned by the polling refresh. Stale
// marks rows whose live report failed and whose counters are the last
// persisted values instead of fresh ones.
type SiteView struct {
	ID                 uuid.UUID `json:"id"`
	SiteName           string    `json:"site_name"`
	TotalUsersCount    int       `json:"total_users_count"`
	ActiveUsersCount   int       `json:"active_users_count"`
	ActiveModulesCount int       `json:"active_modules_count"`
	Active             bool      `json:"active"`
	Location           string    `json:"location"`
	Stale              bool      `json:"stale"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RefreshResult is the polling reconciler's response: every site the user
// owns plus the per-user aggregate.
type RefreshResult struct {
	TotalSites  int        `json:"total_sites"`
	ActiveSites int        `json:"active_sites"`
	Sites       []SiteView `json:"sites"`
}
