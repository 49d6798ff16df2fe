package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
	"github.com/ikechukwuoha/clientportalapp-render/app/repository"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
	metrics "github.com/ikechukwuoha/clientportalapp-render/internal/pkg/metrics/counter"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/sitestate"
)

// HandleGetSitesData runs the polling reconciler for one user: every cached
// site is refreshed from its live reporting endpoints, falling back to the
// last-known values per site when a site is unreachable.
func HandleGetSitesData(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing id"})
	}

	result, err := getSiteStateService().RefreshUserSites(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, sitestate.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		log.Errorf("site refresh for user %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to refresh site data"})
	}

	for _, site := range result.Sites {
		if err := metrics.AddSiteRefresh(site.ID); err != nil {
			log.Debugf("refresh counter for %s not recorded: %v", site.SiteName, err)
		}
	}
	return c.JSON(result)
}

// HandleSiteDataWebhook ingests a consolidated site snapshot pushed by the
// provisioning backend. The snapshot is authoritative: sites it omits are
// deleted for the owning user. Structural problems are reported in the body
// with 200 semantics so the sender does not hammer a broken payload.
func HandleSiteDataWebhook(c *fiber.Ctx) error {
	var snapshot frappe.ConsolidatedSnapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	provisioningSvc := GetProvisioningService()
	created, record, err := provisioningSvc.RecordWebhookEvent(models.WebhookSourceSiteData, c.Get(eventIDHeader), "site_data.snapshot", c.Body(), true)
	if err != nil {
		log.Errorf("failed to record site-data webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record webhook"})
	}
	if !created {
		return c.JSON(fiber.Map{"status": "success", "message": "duplicate delivery ignored", "duplicate": true})
	}

	result, ingestErr := getSiteStateService().IngestSnapshot(c.UserContext(), &snapshot)
	if err := provisioningSvc.MarkWebhookProcessed(record.ID, ingestErr); err != nil {
		log.Errorf("failed to mark webhook %d processed: %v", record.ID, err)
	}
	if ingestErr != nil {
		switch {
		case errors.Is(ingestErr, sitestate.ErrSnapshotNotSuccessful),
			errors.Is(ingestErr, sitestate.ErrNoOwnerEmail),
			errors.Is(ingestErr, sitestate.ErrUnknownUser):
			log.Warnf("site-data snapshot rejected: %v", ingestErr)
			return c.JSON(fiber.Map{"status": "error", "message": ingestErr.Error()})
		default:
			log.Errorf("site-data snapshot failed: %v", ingestErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to ingest snapshot"})
		}
	}
	return c.JSON(result)
}

// HandleActiveSitesCount returns how many of a user's sites are active.
func HandleActiveSitesCount(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing id"})
	}
	count, err := repository.GetGlobalFactory().GetSiteDataRepository().CountActiveByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count sites"})
	}
	return c.JSON(fiber.Map{"user_id": userID, "active_sites": count})
}

// HandleTotalSitesCount returns how many site rows a user owns.
func HandleTotalSitesCount(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing id"})
	}
	count, err := repository.GetGlobalFactory().GetSiteDataRepository().CountTotalByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count sites"})
	}
	return c.JSON(fiber.Map{"user_id": userID, "total_sites": count})
}

// HandleActiveModules returns the per-site module listings for a user.
func HandleActiveModules(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing id"})
	}
	rows, err := repository.GetGlobalFactory().GetSiteDataRepository().ListActiveModules(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load modules"})
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.SiteName), search) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	return c.JSON(fiber.Map{"user_id": userID, "sites": rows})
}

// HandleGetUserSummary returns the last reported per-user site aggregate.
func HandleGetUserSummary(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing id"})
	}
	summary, err := repository.GetGlobalFactory().GetSiteDataRepository().GetSummary(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No summary for user"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load summary"})
	}
	return c.JSON(summary)
}
