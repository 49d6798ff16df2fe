package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
)

// Sentinel errors mapped to HTTP status codes by the controllers.
var (
	ErrInvalidUserID           = errors.New("invalid user id format")
	ErrUserNotFound            = errors.New("user not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrPaymentFailed           = errors.New("payment verification failed")
	ErrUnexpectedPaymentStatus = errors.New("unexpected payment verification status")
)

// FieldError reports a missing or uncoercible request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// InvalidSiteNameError reports a site name that failed validation after
// normalization.
type InvalidSiteNameError struct {
	Normalized string
}

func (e *InvalidSiteNameError) Error() string {
	return fmt.Sprintf("invalid site name after normalization: %s", e.Normalized)
}

// PaymentVerifier confirms a payment reference with the gateway.
type PaymentVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (string, json.RawMessage, error)
}

// SiteCreator is the provisioning backend surface the workflow needs.
type SiteCreator interface {
	CreateSite(ctx context.Context, req frappe.CreateSiteRequest) (*frappe.CreateSiteResponse, error)
	SaveSite(ctx context.Context, payload map[string]any) (json.RawMessage, error)
}

// RetryEnqueuer schedules a durable provisioning retry for a transaction
// whose inline site-creation attempt failed. Best effort; errors are logged
// and never surfaced to the purchase response.
type RetryEnqueuer func(transactionID string)

// TransactionSummary is the transaction slice of the store-transaction
// response.
type TransactionSummary struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Plan               string    `json:"plan"`
	PaymentStatus      string    `json:"payment_status"`
	PaystackStatus     string    `json:"paystack_status"`
	SiteName           string    `json:"site_name"`
	OriginalSiteName   string    `json:"original_site_name"`
	SiteCreationStatus string    `json:"site_creation_status"`
	SiteCreationJobID  string    `json:"site_creation_job_id,omitempty"`
	ValidFrom          time.Time `json:"valid_from"`
	ValidUpto          time.Time `json:"valid_upto"`
}

// StoreTransactionResult is the response body of a successful purchase.
type StoreTransactionResult struct {
	Message      string                     `json:"message"`
	Transaction  TransactionSummary         `json:"transaction"`
	SiteCreation *frappe.CreateSiteResponse `json:"site_creation"`
}

// SiteCreationEvent is the provisioner's completion callback payload.
type SiteCreationEvent struct {
	Status   string `json:"status"`
	SiteName string `json:"site_name"`
	JobID    string `json:"job_id"`
	Message  string `json:"message"`
}

// SiteCreationResult summarizes how a completion callback was applied.
type SiteCreationResult struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
	SiteName      string `json:"site_name,omitempty"`
}

// PaystackEvent is the gateway's native webhook envelope, reduced to the
// fields charge events carry.
type PaystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	} `json:"data"`
}
