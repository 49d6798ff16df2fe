package provisioning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/sitename"
)

// Service runs the transaction-and-site-provisioning workflow: payment
// verification, durable transaction recording, best-effort site creation,
// and the webhook callbacks that settle provisioning state later.
type Service struct {
	repo         Repository
	verifier     PaymentVerifier
	sites        SiteCreator
	domainSuffix string
	enqueueRetry RetryEnqueuer
}

func NewService(repo Repository, verifier PaymentVerifier, sites SiteCreator, domainSuffix string) *Service {
	if domainSuffix == "" {
		domainSuffix = sitename.DefaultSuffix
	}
	return &Service{
		repo:         repo,
		verifier:     verifier,
		sites:        sites,
		domainSuffix: domainSuffix,
	}
}

// NewServiceFromDB creates a provisioning service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, verifier PaymentVerifier, sites SiteCreator, domainSuffix string) *Service {
	return NewService(NewRepository(db), verifier, sites, domainSuffix)
}

// WithRetryEnqueuer registers a hook that schedules a durable provisioning
// retry when the inline site-creation attempt fails.
func (s *Service) WithRetryEnqueuer(fn RetryEnqueuer) *Service {
	s.enqueueRetry = fn
	return s
}

// StoreTransaction validates and persists one purchase attempt.
//
// Payment is the transaction boundary: a failed or unverifiable payment
// aborts with an error and persists nothing. Site provisioning afterwards is
// best effort; its failure is recorded on the row and never turns a
// successful payment into a failed request.
func (s *Service) StoreTransaction(ctx context.Context, payload map[string]any) (*StoreTransactionResult, error) {
	userIDRaw, err := getString(payload, "user_id")
	if err != nil {
		return nil, err
	}
	paymentReference, err := getString(payload, "payment_reference")
	if err != nil {
		return nil, err
	}
	plan, err := getString(payload, "plan")
	if err != nil {
		return nil, err
	}
	firstName, err := getString(payload, "first_name")
	if err != nil {
		return nil, err
	}
	lastName, err := getString(payload, "last_name")
	if err != nil {
		return nil, err
	}
	email, err := getString(payload, "email")
	if err != nil {
		return nil, err
	}
	paymentStatus, err := getString(payload, "payment_status")
	if err != nil {
		return nil, err
	}
	phone, err := getString(payload, "phone")
	if err != nil {
		return nil, err
	}
	country, err := getString(payload, "country")
	if err != nil {
		return nil, err
	}
	companyName, err := getString(payload, "company_name")
	if err != nil {
		return nil, err
	}
	organization, err := getString(payload, "organization")
	if err != nil {
		return nil, err
	}
	originalSiteName, err := getString(payload, "site_name")
	if err != nil {
		return nil, err
	}
	quantity, err := getInt(payload, "quantity")
	if err != nil {
		return nil, err
	}
	amount, err := getFloat(payload, "amount")
	if err != nil {
		return nil, err
	}
	trainingAndSetup, err := getBool(payload, "training_and_setup")
	if err != nil {
		return nil, err
	}
	externalID, err := getInt(payload, "transaction_id")
	if err != nil {
		return nil, err
	}
	message, err := getString(payload, "message")
	if err != nil {
		return nil, err
	}

	// valid_from/valid_upto are accepted for backward compatibility but
	// never trusted: billing validity is computed server-side below.

	siteName := sitename.Normalize(originalSiteName, s.domainSuffix)
	if !sitename.Validate(siteName, s.domainSuffix) {
		return nil, &InvalidSiteNameError{Normalized: siteName}
	}

	userID, err := uuid.Parse(strings.TrimSpace(userIDRaw))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if _, err := s.repo.GetUserByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	paystackStatus, paystackResponse, err := s.verifier.VerifyTransaction(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	switch paystackStatus {
	case models.PaystackStatusSuccess:
	case models.PaystackStatusFailed:
		return nil, ErrPaymentFailed
	default:
		return nil, ErrUnexpectedPaymentStatus
	}

	validFrom := time.Now()
	window, known := ValidityWindow(plan)
	if !known {
		log.Warnf("unknown plan type %q, defaulting to 1 year validity", plan)
	}
	validUpto := validFrom.Add(window)

	txn := &models.Transaction{
		UserID:           userID,
		Plan:             plan,
		PaymentStatus:    paymentStatus,
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Phone:            phone,
		Country:          country,
		CompanyName:      companyName,
		Organization:     organization,
		SiteName:         siteName,
		OriginalSiteName: originalSiteName,
		Quantity:         int(quantity),
		Amount:           amount,
		TrainingAndSetup: trainingAndSetup,
		ValidFrom:        validFrom,
		ValidUpto:        validUpto,
		PaymentReference: paymentReference,
		TransactionID:    externalID,
		Message:          message,
		PaystackStatus:   paystackStatus,
		PaystackResponse: datatypes.JSON(paystackResponse),
	}
	if err := s.repo.CreateTransaction(txn); err != nil {
		return nil, err
	}

	siteCreation := s.attemptSiteCreation(ctx, txn)

	return &StoreTransactionResult{
		Message:      "Transaction stored successfully",
		Transaction:  summarize(txn),
		SiteCreation: siteCreation,
	}, nil
}

// attemptSiteCreation triggers site creation for a freshly persisted
// transaction. Failures are committed on the row and swallowed; the payment
// already succeeded and is the primary outcome.
func (s *Service) attemptSiteCreation(ctx context.Context, txn *models.Transaction) *frappe.CreateSiteResponse {
	resp, err := s.sites.CreateSite(ctx, frappe.CreateSiteRequest{
		SiteName: txn.SiteName,
		Plan:     txn.Plan,
		Quantity: txn.Quantity,
	})
	if err != nil {
		log.Errorf("site creation for %s failed: %v", txn.SiteName, err)
		txn.SiteCreationStatus = models.SiteCreationFailed
		txn.SiteCreationError = err.Error()
		if saveErr := s.repo.SaveTransaction(txn); saveErr != nil {
			log.Errorf("failed to record site creation failure for transaction %s: %v", txn.ID, saveErr)
		}
		if s.enqueueRetry != nil {
			s.enqueueRetry(txn.ID.String())
		}
		return nil
	}

	txn.SiteCreationStatus = models.SiteCreationInitiated
	if resp != nil && resp.JobID != "" {
		txn.SiteCreationJobID = resp.JobID
	}
	if err := s.repo.SaveTransaction(txn); err != nil {
		log.Errorf("failed to record site creation status for transaction %s: %v", txn.ID, err)
	}
	log.Infof("site creation initiated for %s (job %s)", txn.SiteName, txn.SiteCreationJobID)
	return resp
}

// RetryProvisioning re-attempts site creation for a transaction whose
// inline attempt failed. Called by the job queue worker; a transaction that
// has since moved past "failed" is left alone.
func (s *Service) RetryProvisioning(ctx context.Context, transactionID string) error {
	id, err := uuid.Parse(transactionID)
	if err != nil {
		return ErrInvalidUserID
	}
	txn, err := s.repo.GetTransactionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	if txn.SiteCreationStatus != models.SiteCreationFailed {
		log.Infof("skipping provisioning retry for transaction %s in status %q", txn.ID, txn.SiteCreationStatus)
		return nil
	}

	resp, err := s.sites.CreateSite(ctx, frappe.CreateSiteRequest{
		SiteName: txn.SiteName,
		Plan:     txn.Plan,
		Quantity: txn.Quantity,
	})
	if err != nil {
		txn.SiteCreationError = err.Error()
		if saveErr := s.repo.SaveTransaction(txn); saveErr != nil {
			log.Errorf("failed to record retry failure for transaction %s: %v", txn.ID, saveErr)
		}
		return err
	}

	txn.SiteCreationStatus = models.SiteCreationInitiated
	txn.SiteCreationError = ""
	if resp != nil && resp.JobID != "" {
		txn.SiteCreationJobID = resp.JobID
	}
	return s.repo.SaveTransaction(txn)
}

var siteNameInMessage = regexp.MustCompile(`[a-z0-9][a-z0-9-]*(\.[a-z0-9-]+)+`)

// HandleSiteCreationEvent applies the provisioner's completion callback.
// Correlation prefers the echoed job id; callbacks from older provisioner
// versions fall back to the most recent transaction with the site name. The
// handler records outcomes and never propagates processing errors to the
// sender; a malformed callback must not trigger sender-side retry storms.
func (s *Service) HandleSiteCreationEvent(ctx context.Context, event SiteCreationEvent) *SiteCreationResult {
	switch event.Status {
	case "success":
		return s.applySiteCreationSuccess(ctx, event)
	case "failed":
		return s.applySiteCreationFailure(event)
	default:
		log.Warnf("site-creation webhook with unknown status %q ignored", event.Status)
		return &SiteCreationResult{Status: "error", Message: "unknown status: " + event.Status}
	}
}

func (s *Service) applySiteCreationSuccess(ctx context.Context, event SiteCreationEvent) *SiteCreationResult {
	txn, err := s.findCallbackTransaction(event)
	if err != nil {
		log.Errorf("site-creation webhook: no transaction for site %q job %q: %v", event.SiteName, event.JobID, err)
		return &SiteCreationResult{Status: "error", Message: "no matching transaction", SiteName: event.SiteName}
	}

	txn.SiteCreationStatus = models.SiteCreationComplete

	payload := map[string]any{
		"site_name":          txn.SiteName,
		"plan":               txn.Plan,
		"quantity":           txn.Quantity,
		"email":              txn.Email,
		"first_name":         txn.FirstName,
		"last_name":          txn.LastName,
		"phone":              txn.Phone,
		"country":            txn.Country,
		"company_name":       txn.CompanyName,
		"organization":       txn.Organization,
		"amount":             txn.Amount,
		"training_and_setup": txn.TrainingAndSetup,
		"valid_from":         txn.ValidFrom.Format(time.RFC3339),
		"valid_upto":         txn.ValidUpto.Format(time.RFC3339),
	}
	if raw, err := s.sites.SaveSite(ctx, payload); err != nil {
		log.Errorf("save-site forwarding for %s failed: %v", txn.SiteName, err)
		txn.FrappeStatus = models.FrappeStatusFailed
		txn.SiteCreationError = err.Error()
	} else {
		txn.FrappeStatus = models.FrappeStatusSuccess
		txn.FrappeResponse = datatypes.JSON(raw)
	}

	if err := s.repo.SaveTransaction(txn); err != nil {
		log.Errorf("failed to persist site-creation completion for %s: %v", txn.ID, err)
		return &SiteCreationResult{Status: "error", Message: "failed to persist completion", SiteName: txn.SiteName}
	}
	return &SiteCreationResult{
		Status:        "success",
		Message:       "site creation recorded",
		TransactionID: txn.ID.String(),
		SiteName:      txn.SiteName,
	}
}

func (s *Service) applySiteCreationFailure(event SiteCreationEvent) *SiteCreationResult {
	siteName := event.SiteName
	if siteName == "" {
		siteName = siteNameInMessage.FindString(strings.ToLower(event.Message))
	}
	if siteName == "" {
		log.Errorf("site-creation failure webhook without identifiable site: %q", event.Message)
		return &SiteCreationResult{Status: "error", Message: "no site name in failure message"}
	}

	txn, err := s.findCallbackTransaction(SiteCreationEvent{SiteName: siteName, JobID: event.JobID})
	if err != nil {
		log.Errorf("site-creation failure webhook: no transaction for %q: %v", siteName, err)
		return &SiteCreationResult{Status: "error", Message: "no matching transaction", SiteName: siteName}
	}

	txn.SiteCreationStatus = models.SiteCreationFailed
	txn.SiteCreationError = event.Message
	if err := s.repo.SaveTransaction(txn); err != nil {
		log.Errorf("failed to persist site-creation failure for %s: %v", txn.ID, err)
		return &SiteCreationResult{Status: "error", Message: "failed to persist failure", SiteName: siteName}
	}
	return &SiteCreationResult{
		Status:        "success",
		Message:       "site creation failure recorded",
		TransactionID: txn.ID.String(),
		SiteName:      siteName,
	}
}

func (s *Service) findCallbackTransaction(event SiteCreationEvent) (*models.Transaction, error) {
	if event.JobID != "" {
		txn, err := s.repo.GetTransactionByJobID(event.JobID)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if event.SiteName == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return s.repo.GetLatestTransactionBySiteName(event.SiteName)
}

// HandlePaystackEvent re-verifies a charge event with the gateway and
// updates the matching transaction's payment fields by exact external
// transaction id.
func (s *Service) HandlePaystackEvent(ctx context.Context, event PaystackEvent) error {
	switch event.Event {
	case "charge.success", "charge.failed":
	default:
		log.Infof("ignoring paystack event %q", event.Event)
		return nil
	}

	paystackStatus, paystackResponse, err := s.verifier.VerifyTransaction(ctx, event.Data.Reference)
	if err != nil {
		return err
	}

	txn, err := s.repo.GetTransactionByExternalID(event.Data.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}

	if event.Event == "charge.success" {
		txn.PaymentStatus = models.PaystackStatusSuccess
	} else {
		txn.PaymentStatus = models.PaystackStatusFailed
	}
	txn.PaystackStatus = paystackStatus
	txn.PaystackResponse = datatypes.JSON(paystackResponse)
	return s.repo.SaveTransaction(txn)
}

// RecordWebhookEvent persists webhook payloads idempotently. Missing event
// ids fall back to a payload hash so replays of unidentified deliveries
// still deduplicate.
func (s *Service) RecordWebhookEvent(source, eventID, eventType string, payload []byte, signatureValid bool) (bool, *models.WebhookEvent, error) {
	id := strings.TrimSpace(eventID)
	if id == "" {
		sum := sha256.Sum256(payload)
		id = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Source:         source,
		SourceEventID:  id,
		EventType:      strings.TrimSpace(eventType),
		PayloadJSON:    string(payload),
		SignatureValid: signatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(webhookEventID uint, processingErr error) error {
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func summarize(txn *models.Transaction) TransactionSummary {
	return TransactionSummary{
		ID:                 txn.ID.String(),
		UserID:             txn.UserID.String(),
		Plan:               txn.Plan,
		PaymentStatus:      txn.PaymentStatus,
		PaystackStatus:     txn.PaystackStatus,
		SiteName:           txn.SiteName,
		OriginalSiteName:   txn.OriginalSiteName,
		SiteCreationStatus: txn.SiteCreationStatus,
		SiteCreationJobID:  txn.SiteCreationJobID,
		ValidFrom:          txn.ValidFrom,
		ValidUpto:          txn.ValidUpto,
	}
}
