package frappe

import "encoding/json"

// CreateSiteRequest is the payload for the provisioner's site-creation call.
type CreateSiteRequest struct {
	SiteName string `json:"site_name"`
	Plan     string `json:"plan"`
	Quantity int    `json:"quantity"`
}

// CreateSiteResponse is what the provisioner returns when it accepts a
// creation request. JobID is present when the backend queued the work
// asynchronously; completion arrives later via the site-creation webhook.
type CreateSiteResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// Totals is the per-user aggregate carried by a consolidated snapshot.
type Totals struct {
	TotalSites  int `json:"total_sites"`
	ActiveSites int `json:"active_sites"`
}

type SiteInfo struct {
	SiteName   string `json:"site_name"`
	SiteStatus bool   `json:"site_status"`
	Country    string `json:"country"`
	Email      string `json:"email"`
}

type SiteStats struct {
	TotalUsers      int             `json:"total_users"`
	ActiveUsers     int             `json:"active_users"`
	ActiveModules   int             `json:"active_modules"`
	Users           json.RawMessage `json:"users"`
	ActiveUsersList json.RawMessage `json:"active_users_list"`
	Modules         json.RawMessage `json:"modules"`
}

type SiteEntry struct {
	SiteInfo SiteInfo  `json:"site_info"`
	Stats    SiteStats `json:"stats"`
}

type SnapshotData struct {
	Totals    Totals      `json:"totals"`
	SitesData []SiteEntry `json:"sites_data"`
}

// ConsolidatedSnapshot is the envelope delivered both by the site-data
// webhook and by the consolidated fetch endpoint.
type ConsolidatedSnapshot struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    SnapshotData `json:"data"`
}

// SiteReport holds the live counters read straight off a tenant site's own
// reporting endpoints.
type SiteReport struct {
	TotalUsersCount    int
	TotalUsers         json.RawMessage
	ActiveUsersCount   int
	ActiveUsers        json.RawMessage
	ActiveModulesCount int
	ActiveModules      json.RawMessage
}
