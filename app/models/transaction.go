package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gateway-confirmed payment outcomes.
const (
	PaystackStatusSuccess = "success"
	PaystackStatusFailed  = "failed"
)

// Provisioning lifecycle on a transaction. Empty means provisioning was never
// attempted (the payment gate rejected the request before this point).
const (
	SiteCreationInitiated = "initiated"
	SiteCreationComplete  = "complete"
	SiteCreationFailed    = "failed"
)

// Forwarding outcome of the site-creation completion callback.
const (
	FrappeStatusSuccess = "success"
	FrappeStatusFailed  = "failed"
)

// Transaction is one purchase attempt. A row exists only for
// gateway-confirmed successful payments; failed verifications leave no
// record. The payment fields are written once at creation, the
// site_creation_* and frappe_* fields are the only ones mutated afterwards,
// by the provisioning callback and the retry worker.
type Transaction struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`
	Plan             string    `gorm:"type:varchar(50);not null" json:"plan" validate:"required"`
	PaymentStatus    string    `gorm:"type:varchar(50);not null" json:"payment_status" validate:"required"`
	FirstName        string    `gorm:"type:varchar(150);not null" json:"first_name" validate:"required"`
	LastName         string    `gorm:"type:varchar(150);not null" json:"last_name" validate:"required"`
	Email            string    `gorm:"type:varchar(200);not null" json:"email" validate:"required,email"`
	Phone            string    `gorm:"type:varchar(50);not null" json:"phone" validate:"required"`
	Country          string    `gorm:"type:varchar(100);not null" json:"country" validate:"required"`
	CompanyName      string    `gorm:"type:varchar(200);not null" json:"company_name" validate:"required"`
	Organization     string    `gorm:"type:varchar(200);not null" json:"organization" validate:"required"`
	SiteName         string    `gorm:"type:varchar(253);index;not null" json:"site_name" validate:"required"`
	OriginalSiteName string    `gorm:"type:varchar(253);not null" json:"original_site_name"`
	Quantity         int       `gorm:"not null" json:"quantity" validate:"gt=0"`
	Amount           float64   `gorm:"not null" json:"amount" validate:"gte=0"`
	TrainingAndSetup bool      `gorm:"not null" json:"training_and_setup"`
	ValidFrom        time.Time `gorm:"not null" json:"valid_from"`
	ValidUpto        time.Time `gorm:"not null" json:"valid_upto"`
	PaymentReference string    `gorm:"type:varchar(191);index;not null" json:"payment_reference" validate:"required"`
	TransactionID    int64     `gorm:"index;not null" json:"transaction_id"`
	Message          string    `gorm:"type:text" json:"message"`

	PaystackStatus   string         `gorm:"type:varchar(50)" json:"paystack_status"`
	PaystackResponse datatypes.JSON `gorm:"type:json" json:"paystack_response,omitempty"`

	SiteCreationStatus string    `gorm:"type:varchar(50);default:''" json:"site_creation_status"`
	SiteCreationJobID  string    `gorm:"type:varchar(191);index" json:"site_creation_job_id,omitempty"`
	SiteCreationError  string    `gorm:"type:text" json:"site_creation_error,omitempty"`
	FrappeStatus       string    `gorm:"type:varchar(50)" json:"frappe_status,omitempty"`
	FrappeResponse     datatypes.JSON `gorm:"type:json" json:"frappe_response,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
