package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
)

const (
	createSitePath   = "/api/method/clientportalapp_admin.sites.create_new_site"
	saveSitePath     = "/api/method/clientportalapp_admin.sites.save_site"
	consolidatedPath = "/api/method/admin_clientportalapp.site_data.get_consolidated_site_data"

	totalUsersMethod    = "admin_clientportalapp.users.get_users"
	activeUsersMethod   = "admin_clientportalapp.users.get_active_users"
	activeModulesMethod = "admin_clientportalapp.modules.get_modules"
)

// Client talks to the provisioning backend and to individual tenant sites.
// No retries happen here; callers decide whether a failure is fatal or gets
// recorded for later remediation.
type Client struct {
	BaseURL  string
	APIToken string

	// ReportScheme is the scheme used for per-site reporting calls
	// (https in production, http against local test benches).
	ReportScheme string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:      strings.TrimRight(env.GetEnv("FRAPPE_BASE_URL", ""), "/"),
		APIToken:     strings.TrimSpace(env.GetEnv("FRAPPE_API_TOKEN", "")),
		ReportScheme: env.GetEnv("SITE_REPORT_SCHEME", "https"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateSite asks the provisioning backend to create a tenant site. Any
// non-2xx, network failure, or error-status body is wrapped into one error;
// a success may carry a job id for asynchronous completion.
func (c *Client) CreateSite(ctx context.Context, req CreateSiteRequest) (*CreateSiteResponse, error) {
	if c.BaseURL == "" {
		return nil, errors.New("frappe: FRAPPE_BASE_URL is not configured")
	}

	body, err := c.postJSON(ctx, c.BaseURL+createSitePath, req)
	if err != nil {
		return nil, fmt.Errorf("frappe: failed to create site %q: %w", req.SiteName, err)
	}

	var out CreateSiteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("frappe: invalid create-site response: %w", err)
	}
	if out.Status == "error" {
		return nil, fmt.Errorf("frappe: create site %q rejected: %s", req.SiteName, out.Message)
	}
	return &out, nil
}

// SaveSite forwards post-creation site data to the provisioning backend.
func (c *Client) SaveSite(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	if c.BaseURL == "" {
		return nil, errors.New("frappe: FRAPPE_BASE_URL is not configured")
	}

	body, err := c.postJSON(ctx, c.BaseURL+saveSitePath, payload)
	if err != nil {
		return nil, fmt.Errorf("frappe: save site failed: %w", err)
	}
	return json.RawMessage(body), nil
}

type consolidatedEnvelope struct {
	Message ConsolidatedSnapshot `json:"message"`
}

// FetchConsolidatedSiteData pulls the consolidated usage snapshot for one
// user from the provisioning backend.
func (c *Client) FetchConsolidatedSiteData(ctx context.Context, email string) (*ConsolidatedSnapshot, error) {
	if c.BaseURL == "" {
		return nil, errors.New("frappe: FRAPPE_BASE_URL is not configured")
	}

	u := c.BaseURL + consolidatedPath + "?email=" + url.QueryEscape(email)
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("frappe: consolidated site data fetch failed: %w", err)
	}

	var out consolidatedEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("frappe: invalid consolidated site data response: %w", err)
	}
	return &out.Message, nil
}

type countListMessage struct {
	Message struct {
		Count   int             `json:"count"`
		Users   json.RawMessage `json:"users"`
		Modules json.RawMessage `json:"modules"`
	} `json:"message"`
}

// FetchSiteReport reads the three live counters off a tenant site's own
// reporting endpoints. One failed call fails the whole report; callers fall
// back to last-known persisted values.
func (c *Client) FetchSiteReport(ctx context.Context, siteName string) (*SiteReport, error) {
	scheme := c.ReportScheme
	if scheme == "" {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s/api/method/", scheme, siteName)

	report := &SiteReport{}
	for _, call := range []struct {
		method string
		apply  func(countListMessage)
	}{
		{totalUsersMethod, func(m countListMessage) {
			report.TotalUsersCount = m.Message.Count
			report.TotalUsers = m.Message.Users
		}},
		{activeUsersMethod, func(m countListMessage) {
			report.ActiveUsersCount = m.Message.Count
			report.ActiveUsers = m.Message.Users
		}},
		{activeModulesMethod, func(m countListMessage) {
			report.ActiveModulesCount = m.Message.Count
			report.ActiveModules = m.Message.Modules
		}},
	} {
		body, err := c.getJSON(ctx, base+call.method)
		if err != nil {
			return nil, fmt.Errorf("frappe: report call %s on %s failed: %w", call.method, siteName, err)
		}
		var msg countListMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("frappe: invalid report response from %s: %w", siteName, err)
		}
		call.apply(msg)
	}
	return report, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "token "+c.APIToken)
	}

	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.APIToken != "" {
		req.Header.Set("Authorization", "token "+c.APIToken)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}
