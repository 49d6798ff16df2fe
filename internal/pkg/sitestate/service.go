package sitestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
)

// Service reconciles locally cached site state with the provisioning
// backend. Two paths converge on the same site_data rows: webhook ingestion
// of consolidated snapshots, and an on-demand polling refresh against each
// site's own reporting endpoints.
type Service struct {
	repo     Repository
	reporter SiteReporter
}

func NewService(repo Repository, reporter SiteReporter) *Service {
	return &Service{repo: repo, reporter: reporter}
}

func NewServiceFromDB(db *gorm.DB, reporter SiteReporter) *Service {
	return NewService(NewRepository(db), reporter)
}

// IngestSnapshot applies one consolidated snapshot. The snapshot is
// authoritative for the owning user: sites it no longer lists are deleted,
// listed sites are upserted by global site name, and the user's aggregate
// summary is replaced. A single bad site entry is skipped; structural
// problems (wrong status, no owner email, unknown user) reject the whole
// snapshot.
func (s *Service) IngestSnapshot(ctx context.Context, snapshot *frappe.ConsolidatedSnapshot) (*IngestResult, error) {
	if snapshot == nil || snapshot.Status != "success" {
		return nil, ErrSnapshotNotSuccessful
	}

	email := ownerEmail(snapshot)
	if email == "" {
		return nil, ErrNoOwnerEmail
	}
	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, email)
		}
		return nil, err
	}

	incoming := make([]string, 0, len(snapshot.Data.SitesData))
	for _, entry := range snapshot.Data.SitesData {
		if entry.SiteInfo.SiteName != "" {
			incoming = append(incoming, entry.SiteInfo.SiteName)
		}
	}

	deleted, err := s.repo.DeleteSitesNotIn(user.ID, incoming)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Status: "success", Deleted: int(deleted)}
	for _, entry := range snapshot.Data.SitesData {
		if entry.SiteInfo.SiteName == "" {
			result.Skipped++
			continue
		}
		created, err := s.applyEntry(user.ID, entry)
		if err != nil {
			log.Errorf("skipping site entry %q: %v", entry.SiteInfo.SiteName, err)
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := s.repo.UpsertSummary(user.ID, snapshot.Data.Totals.TotalSites, snapshot.Data.Totals.ActiveSites); err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("processed %d sites for %s", len(incoming), email)
	log.Infof("site-data snapshot for %s: %d created, %d updated, %d deleted, %d skipped",
		email, result.Created, result.Updated, result.Deleted, result.Skipped)
	return result, nil
}

// applyEntry upserts one site row. Lookup is by global site name so the
// webhook path and the polling path land on the same row. An existing row
// keeps its owner: a snapshot resolved to a different user updates the
// counters but never reassigns user_id.
func (s *Service) applyEntry(userID uuid.UUID, entry frappe.SiteEntry) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}

	site, err := s.repo.GetSiteByName(entry.SiteInfo.SiteName)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		site = &models.SiteData{
			SiteName: entry.SiteInfo.SiteName,
			UserID:   userID,
		}
		fillSite(site, entry, raw)
		return true, s.repo.CreateSite(site)
	}

	fillSite(site, entry, raw)
	return false, s.repo.SaveSite(site)
}

func fillSite(site *models.SiteData, entry frappe.SiteEntry, raw []byte) {
	site.TotalUsersCount = entry.Stats.TotalUsers
	site.ActiveUsersCount = entry.Stats.ActiveUsers
	site.ActiveModulesCount = entry.Stats.ActiveModules
	site.Active = entry.SiteInfo.SiteStatus
	site.Location = entry.SiteInfo.Country
	site.TotalUsers = datatypes.JSON(entry.Stats.Users)
	site.ActiveUsers = datatypes.JSON(entry.Stats.ActiveUsersList)
	site.ActiveModules = datatypes.JSON(entry.Stats.Modules)
	site.SitesData = datatypes.JSON(raw)
}

// RefreshUserSites is the polling reconciler. For every site the user owns
// it reads the live counters off the site's reporting endpoints; a site
// whose report fails is returned with its last persisted values marked
// stale, and rows are only written back when a counter actually changed. A
// user with no cached sites at all delegates to a consolidated fetch first.
func (s *Service) RefreshUserSites(ctx context.Context, userID uuid.UUID) (*RefreshResult, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	sites, err := s.repo.ListSitesByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		// Cold start: nothing cached to reconcile, pull the full picture.
		if err := s.coldStart(ctx, user); err != nil {
			return nil, err
		}
		if sites, err = s.repo.ListSitesByUser(userID); err != nil {
			return nil, err
		}
	}

	result := &RefreshResult{Sites: make([]SiteView, 0, len(sites))}
	for i := range sites {
		site := &sites[i]
		report, err := s.reporter.FetchSiteReport(ctx, site.SiteName)
		if err != nil {
			log.Warnf("live report for %s failed, serving last known values: %v", site.SiteName, err)
			result.Sites = append(result.Sites, viewOf(site, true))
			continue
		}
		if applyReport(site, report) {
			if err := s.repo.SaveSite(site); err != nil {
				return nil, err
			}
		}
		result.Sites = append(result.Sites, viewOf(site, false))
	}

	if summary, err := s.repo.GetSummary(userID); err == nil {
		result.TotalSites = summary.TotalSites
		result.ActiveSites = summary.ActiveSites
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	} else {
		result.TotalSites = len(result.Sites)
		for _, v := range result.Sites {
			if v.Active {
				result.ActiveSites++
			}
		}
	}
	return result, nil
}

func (s *Service) coldStart(ctx context.Context, user *models.User) error {
	snapshot, err := s.reporter.FetchConsolidatedSiteData(ctx, user.Email)
	if err != nil {
		return err
	}
	_, err = s.IngestSnapshot(ctx, snapshot)
	if err != nil && !errors.Is(err, ErrSnapshotNotSuccessful) {
		return err
	}
	return nil
}

// applyReport copies fresh counters onto the row and reports whether
// anything changed.
func applyReport(site *models.SiteData, report *frappe.SiteReport) bool {
	changed := site.TotalUsersCount != report.TotalUsersCount ||
		site.ActiveUsersCount != report.ActiveUsersCount ||
		site.ActiveModulesCount != report.ActiveModulesCount
	if !changed {
		return false
	}
	site.TotalUsersCount = report.TotalUsersCount
	site.ActiveUsersCount = report.ActiveUsersCount
	site.ActiveModulesCount = report.ActiveModulesCount
	site.TotalUsers = datatypes.JSON(report.TotalUsers)
	site.ActiveUsers = datatypes.JSON(report.ActiveUsers)
	site.ActiveModules = datatypes.JSON(report.ActiveModules)
	return true
}

func viewOf(site *models.SiteData, stale bool) SiteView {
	return SiteView{
		ID:                 site.ID,
		SiteName:           site.SiteName,
		TotalUsersCount:    site.TotalUsersCount,
		ActiveUsersCount:   site.ActiveUsersCount,
		ActiveModulesCount: site.ActiveModulesCount,
		Active:             site.Active,
		Location:           site.Location,
		Stale:              stale,
		UpdatedAt:          site.UpdatedAt,
	}
}

func ownerEmail(snapshot *frappe.ConsolidatedSnapshot) string {
	for _, entry := range snapshot.Data.SitesData {
		if entry.SiteInfo.Email != "" {
			return entry.SiteInfo.Email
		}
	}
	return ""
}
