package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
)

type fakeRepository struct {
	users        map[uuid.UUID]*models.User
	transactions []*models.Transaction
	webhooks     []*models.WebhookEvent
	saveCalls    int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: map[uuid.UUID]*models.User{}}
}

func (r *fakeRepository) addUser() uuid.UUID {
	id := uuid.New()
	r.users[id] = &models.User{ID: id, Name: "Test User", Email: id.String() + "@example.com"}
	return id
}

func (r *fakeRepository) GetUserByID(id uuid.UUID) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateTransaction(t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	r.transactions = append(r.transactions, t)
	return nil
}

func (r *fakeRepository) SaveTransaction(t *models.Transaction) error {
	r.saveCalls++
	return nil
}

func (r *fakeRepository) GetTransactionByID(id uuid.UUID) (*models.Transaction, error) {
	for _, t := range r.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetTransactionByJobID(jobID string) (*models.Transaction, error) {
	for _, t := range r.transactions {
		if t.SiteCreationJobID == jobID {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetTransactionByExternalID(externalID int64) (*models.Transaction, error) {
	for _, t := range r.transactions {
		if t.TransactionID == externalID {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetLatestTransactionBySiteName(siteName string) (*models.Transaction, error) {
	var latest *models.Transaction
	for _, t := range r.transactions {
		if t.SiteName != siteName {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *fakeRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	for _, existing := range r.webhooks {
		if existing.Source == event.Source && existing.SourceEventID == event.SourceEventID {
			return false, existing, nil
		}
	}
	event.ID = uint(len(r.webhooks) + 1)
	r.webhooks = append(r.webhooks, event)
	return true, event, nil
}

func (r *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.webhooks {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeVerifier struct {
	status string
	raw    json.RawMessage
	err    error
}

func (v *fakeVerifier) VerifyTransaction(_ context.Context, _ string) (string, json.RawMessage, error) {
	return v.status, v.raw, v.err
}

type fakeSiteCreator struct {
	createErr   error
	jobID       string
	saveErr     error
	createCalls int
	saveCalls   int
	lastRequest frappe.CreateSiteRequest
}

func (f *fakeSiteCreator) CreateSite(_ context.Context, req frappe.CreateSiteRequest) (*frappe.CreateSiteResponse, error) {
	f.createCalls++
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &frappe.CreateSiteResponse{Status: "success", JobID: f.jobID}, nil
}

func (f *fakeSiteCreator) SaveSite(_ context.Context, _ map[string]any) (json.RawMessage, error) {
	f.saveCalls++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return json.RawMessage(`{"message":"ok"}`), nil
}

func validPayload(userID uuid.UUID) map[string]any {
	return map[string]any{
		"user_id":            userID.String(),
		"payment_reference":  "ref_123",
		"plan":               "standard",
		"first_name":         "Ada",
		"last_name":          "Obi",
		"email":              "ada@example.com",
		"payment_status":     "success",
		"phone":              "+2348000000000",
		"country":            "Nigeria",
		"company_name":       "Acme Corp",
		"organization":       "Acme",
		"site_name":          "Acme Corp",
		"quantity":           float64(5),
		"amount":             float64(125000),
		"training_and_setup": true,
		"transaction_id":     float64(987654),
		"message":            "Approved",
	}
}

func TestStoreTransactionSuccess(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	sites := &fakeSiteCreator{jobID: "job-42"}
	svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusSuccess, raw: json.RawMessage(`{"status":true}`)}, sites, "")

	result, err := svc.StoreTransaction(context.Background(), validPayload(userID))
	if err != nil {
		t.Fatalf("StoreTransaction returned error: %v", err)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("expected 1 persisted transaction, got %d", len(repo.transactions))
	}

	txn := repo.transactions[0]
	if txn.SiteName != "acmecorp.purpledove.net" {
		t.Errorf("site name = %q, want acmecorp.purpledove.net", txn.SiteName)
	}
	if txn.OriginalSiteName != "Acme Corp" {
		t.Errorf("original site name = %q, want Acme Corp", txn.OriginalSiteName)
	}
	if txn.SiteCreationStatus != models.SiteCreationInitiated {
		t.Errorf("site creation status = %q, want initiated", txn.SiteCreationStatus)
	}
	if txn.SiteCreationJobID != "job-42" {
		t.Errorf("job id = %q, want job-42", txn.SiteCreationJobID)
	}
	if sites.lastRequest.SiteName != "acmecorp.purpledove.net" || sites.lastRequest.Quantity != 5 {
		t.Errorf("unexpected create request: %+v", sites.lastRequest)
	}
	if result.SiteCreation == nil || result.SiteCreation.JobID != "job-42" {
		t.Errorf("result site creation = %+v, want job-42", result.SiteCreation)
	}
	if result.Transaction.SiteCreationStatus != models.SiteCreationInitiated {
		t.Errorf("summary status = %q, want initiated", result.Transaction.SiteCreationStatus)
	}
}

func TestStoreTransactionCustomDomainSuffix(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	sites := &fakeSiteCreator{jobID: "job-7"}
	svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusSuccess}, sites, ".tenants.example.org")

	result, err := svc.StoreTransaction(context.Background(), validPayload(userID))
	if err != nil {
		t.Fatalf("StoreTransaction returned error: %v", err)
	}
	if result.Transaction.SiteName != "acmecorp.tenants.example.org" {
		t.Errorf("site name = %q, want acmecorp.tenants.example.org", result.Transaction.SiteName)
	}
	if sites.lastRequest.SiteName != "acmecorp.tenants.example.org" {
		t.Errorf("create request site = %q, want custom suffix applied", sites.lastRequest.SiteName)
	}
}

func TestStoreTransactionValidityWindows(t *testing.T) {
	tests := []struct {
		plan string
		days int
	}{
		{"free", 14},
		{"standard", 365},
		{"custom", 365},
		{"enterprise", 365},
	}
	for _, tc := range tests {
		t.Run(tc.plan, func(t *testing.T) {
			repo := newFakeRepository()
			userID := repo.addUser()
			svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusSuccess}, &fakeSiteCreator{}, "")

			payload := validPayload(userID)
			payload["plan"] = tc.plan
			// Client-supplied validity must be ignored.
			payload["valid_from"] = "2001-01-01T00:00:00Z"
			payload["valid_upto"] = "2001-01-02T00:00:00Z"

			if _, err := svc.StoreTransaction(context.Background(), payload); err != nil {
				t.Fatalf("StoreTransaction returned error: %v", err)
			}
			txn := repo.transactions[0]
			got := txn.ValidUpto.Sub(txn.ValidFrom)
			want := time.Duration(tc.days) * 24 * time.Hour
			if got != want {
				t.Errorf("validity window = %v, want %v", got, want)
			}
			if txn.ValidFrom.Year() == 2001 {
				t.Error("client-supplied valid_from was trusted")
			}
		})
	}
}

func TestStoreTransactionFailedPaymentPersistsNothing(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	sites := &fakeSiteCreator{}
	svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusFailed}, sites, "")

	_, err := svc.StoreTransaction(context.Background(), validPayload(userID))
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("err = %v, want ErrPaymentFailed", err)
	}
	if len(repo.transactions) != 0 {
		t.Errorf("failed payment persisted %d transactions", len(repo.transactions))
	}
	if sites.createCalls != 0 {
		t.Errorf("failed payment triggered %d site creations", sites.createCalls)
	}
}

func TestStoreTransactionUnexpectedPaymentStatus(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	svc := NewService(repo, &fakeVerifier{status: "abandoned"}, &fakeSiteCreator{}, "")

	_, err := svc.StoreTransaction(context.Background(), validPayload(userID))
	if !errors.Is(err, ErrUnexpectedPaymentStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedPaymentStatus", err)
	}
	if len(repo.transactions) != 0 {
		t.Errorf("unexpected status persisted %d transactions", len(repo.transactions))
	}
}

func TestStoreTransactionSiteCreationFailureDoesNotFailRequest(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	sites := &fakeSiteCreator{createErr: errors.New("backend unreachable")}
	var retried []string
	svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusSuccess}, sites, "").
		WithRetryEnqueuer(func(id string) { retried = append(retried, id) })

	result, err := svc.StoreTransaction(context.Background(), validPayload(userID))
	if err != nil {
		t.Fatalf("StoreTransaction returned error: %v", err)
	}
	txn := repo.transactions[0]
	if txn.SiteCreationStatus != models.SiteCreationFailed {
		t.Errorf("site creation status = %q, want failed", txn.SiteCreationStatus)
	}
	if txn.SiteCreationError == "" {
		t.Error("site creation error not recorded")
	}
	if result.SiteCreation != nil {
		t.Errorf("result site creation = %+v, want nil", result.SiteCreation)
	}
	if len(retried) != 1 || retried[0] != txn.ID.String() {
		t.Errorf("retry enqueued for %v, want [%s]", retried, txn.ID)
	}
}

func TestStoreTransactionRejections(t *testing.T) {
	repo := newFakeRepository()
	userID := repo.addUser()
	svc := NewService(repo, &fakeVerifier{status: models.PaystackStatusSuccess}, &fakeSiteCreator{}, "")

	t.Run("missing field", func(t *testing.T) {
		payload := validPayload(userID)
		delete(payload, "payment_reference")
		_, err := svc.StoreTransaction(context.Background(), payload)
		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) || fieldErr.Field != "payment_reference" {
			t.Fatalf("err = %v, want FieldError for payment_reference", err)
		}
	})

	t.Run("invalid site name", func(t *testing.T) {
		payload := validPayload(userID)
		payload["site_name"] = "-bad-"
		_, err := svc.StoreTransaction(context.Background(), payload)
		var siteErr *InvalidSiteNameError
		if !errors.As(err, &siteErr) {
			t.Fatalf("err = %v, want InvalidSiteNameError", err)
		}
	})

	t.Run("malformed user id", func(t *testing.T) {
		payload := validPayload(userID)
		payload["user_id"] = "not-a-uuid"
		if _, err := svc.StoreTransaction(context.Background(), payload); !errors.Is(err, ErrInvalidUserID) {
			t.Fatalf("err = %v, want ErrInvalidUserID", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		payload := validPayload(userID)
		payload["user_id"] = uuid.New().String()
		if _, err := svc.StoreTransaction(context.Background(), payload); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	})

	if len(repo.transactions) != 0 {
		t.Errorf("rejected requests persisted %d transactions", len(repo.transactions))
	}
}

func TestRetryProvisioning(t *testing.T) {
	repo := newFakeRepository()
	txn := &models.Transaction{
		ID:                 uuid.New(),
		SiteName:           "acmecorp.purpledove.net",
		Plan:               "standard",
		Quantity:           5,
		SiteCreationStatus: models.SiteCreationFailed,
		SiteCreationError:  "backend unreachable",
	}
	repo.transactions = append(repo.transactions, txn)
	sites := &fakeSiteCreator{jobID: "job-77"}
	svc := NewService(repo, &fakeVerifier{}, sites, "")

	if err := svc.RetryProvisioning(context.Background(), txn.ID.String()); err != nil {
		t.Fatalf("RetryProvisioning returned error: %v", err)
	}
	if txn.SiteCreationStatus != models.SiteCreationInitiated {
		t.Errorf("status = %q, want initiated", txn.SiteCreationStatus)
	}
	if txn.SiteCreationJobID != "job-77" {
		t.Errorf("job id = %q, want job-77", txn.SiteCreationJobID)
	}
	if txn.SiteCreationError != "" {
		t.Errorf("error not cleared: %q", txn.SiteCreationError)
	}

	// A transaction that already moved on is skipped.
	sites.createCalls = 0
	txn.SiteCreationStatus = models.SiteCreationComplete
	if err := svc.RetryProvisioning(context.Background(), txn.ID.String()); err != nil {
		t.Fatalf("RetryProvisioning returned error: %v", err)
	}
	if sites.createCalls != 0 {
		t.Errorf("retry re-provisioned a completed transaction")
	}
}

func TestHandleSiteCreationEventSuccess(t *testing.T) {
	repo := newFakeRepository()
	txn := &models.Transaction{
		ID:                 uuid.New(),
		SiteName:           "acmecorp.purpledove.net",
		SiteCreationStatus: models.SiteCreationInitiated,
		SiteCreationJobID:  "job-42",
		ValidFrom:          time.Now(),
		ValidUpto:          time.Now().Add(365 * 24 * time.Hour),
	}
	repo.transactions = append(repo.transactions, txn)
	sites := &fakeSiteCreator{}
	svc := NewService(repo, &fakeVerifier{}, sites, "")

	result := svc.HandleSiteCreationEvent(context.Background(), SiteCreationEvent{
		Status:   "success",
		SiteName: "acmecorp.purpledove.net",
		JobID:    "job-42",
	})
	if result.Status != "success" {
		t.Fatalf("result = %+v, want success", result)
	}
	if txn.SiteCreationStatus != models.SiteCreationComplete {
		t.Errorf("status = %q, want complete", txn.SiteCreationStatus)
	}
	if txn.FrappeStatus != models.FrappeStatusSuccess {
		t.Errorf("frappe status = %q, want success", txn.FrappeStatus)
	}
	if sites.saveCalls != 1 {
		t.Errorf("save-site forwarded %d times, want 1", sites.saveCalls)
	}
}

func TestHandleSiteCreationEventJobIDWins(t *testing.T) {
	repo := newFakeRepository()
	older := &models.Transaction{
		ID:                uuid.New(),
		SiteName:          "acmecorp.purpledove.net",
		SiteCreationJobID: "job-1",
		CreatedAt:         time.Now().Add(-time.Hour),
	}
	newer := &models.Transaction{
		ID:                uuid.New(),
		SiteName:          "acmecorp.purpledove.net",
		SiteCreationJobID: "job-2",
		CreatedAt:         time.Now(),
	}
	repo.transactions = append(repo.transactions, older, newer)
	svc := NewService(repo, &fakeVerifier{}, &fakeSiteCreator{}, "")

	result := svc.HandleSiteCreationEvent(context.Background(), SiteCreationEvent{
		Status:   "success",
		SiteName: "acmecorp.purpledove.net",
		JobID:    "job-1",
	})
	if result.TransactionID != older.ID.String() {
		t.Errorf("correlated transaction %s, want older %s (job id must win over recency)", result.TransactionID, older.ID)
	}
}

func TestHandleSiteCreationEventForwardingFailure(t *testing.T) {
	repo := newFakeRepository()
	txn := &models.Transaction{
		ID:                uuid.New(),
		SiteName:          "acmecorp.purpledove.net",
		SiteCreationJobID: "job-42",
	}
	repo.transactions = append(repo.transactions, txn)
	sites := &fakeSiteCreator{saveErr: errors.New("erp down")}
	svc := NewService(repo, &fakeVerifier{}, sites, "")

	result := svc.HandleSiteCreationEvent(context.Background(), SiteCreationEvent{Status: "success", JobID: "job-42"})
	if result.Status != "success" {
		t.Fatalf("forwarding failure escalated to sender: %+v", result)
	}
	if txn.SiteCreationStatus != models.SiteCreationComplete {
		t.Errorf("status = %q, want complete despite forwarding failure", txn.SiteCreationStatus)
	}
	if txn.FrappeStatus != models.FrappeStatusFailed {
		t.Errorf("frappe status = %q, want failed", txn.FrappeStatus)
	}
}

func TestHandleSiteCreationEventFailureFromMessage(t *testing.T) {
	repo := newFakeRepository()
	txn := &models.Transaction{
		ID:                 uuid.New(),
		SiteName:           "acmecorp.purpledove.net",
		SiteCreationStatus: models.SiteCreationInitiated,
	}
	repo.transactions = append(repo.transactions, txn)
	svc := NewService(repo, &fakeVerifier{}, &fakeSiteCreator{}, "")

	result := svc.HandleSiteCreationEvent(context.Background(), SiteCreationEvent{
		Status:  "failed",
		Message: "Site creation failed for acmecorp.purpledove.net: bench error",
	})
	if result.Status != "success" {
		t.Fatalf("result = %+v, want recorded failure", result)
	}
	if txn.SiteCreationStatus != models.SiteCreationFailed {
		t.Errorf("status = %q, want failed", txn.SiteCreationStatus)
	}
	if txn.SiteCreationError == "" {
		t.Error("failure message not recorded")
	}
}

func TestHandleSiteCreationEventUnmatched(t *testing.T) {
	svc := NewService(newFakeRepository(), &fakeVerifier{}, &fakeSiteCreator{}, "")
	result := svc.HandleSiteCreationEvent(context.Background(), SiteCreationEvent{
		Status:   "success",
		SiteName: "ghost.purpledove.net",
	})
	if result.Status != "error" {
		t.Fatalf("result = %+v, want error acknowledgement", result)
	}
}

func TestHandlePaystackEvent(t *testing.T) {
	repo := newFakeRepository()
	txn := &models.Transaction{
		ID:            uuid.New(),
		TransactionID: 987654,
		PaymentStatus: "pending",
	}
	repo.transactions = append(repo.transactions, txn)
	verifier := &fakeVerifier{status: models.PaystackStatusSuccess, raw: json.RawMessage(`{"status":true}`)}
	svc := NewService(repo, verifier, &fakeSiteCreator{}, "")

	event := PaystackEvent{Event: "charge.success"}
	event.Data.ID = 987654
	event.Data.Reference = "ref_123"
	if err := svc.HandlePaystackEvent(context.Background(), event); err != nil {
		t.Fatalf("HandlePaystackEvent returned error: %v", err)
	}
	if txn.PaymentStatus != models.PaystackStatusSuccess {
		t.Errorf("payment status = %q, want success", txn.PaymentStatus)
	}

	event.Event = "charge.failed"
	verifier.status = models.PaystackStatusFailed
	if err := svc.HandlePaystackEvent(context.Background(), event); err != nil {
		t.Fatalf("HandlePaystackEvent returned error: %v", err)
	}
	if txn.PaymentStatus != models.PaystackStatusFailed {
		t.Errorf("payment status = %q, want failed", txn.PaymentStatus)
	}

	// Unrelated events are acknowledged without lookup.
	if err := svc.HandlePaystackEvent(context.Background(), PaystackEvent{Event: "transfer.success"}); err != nil {
		t.Fatalf("unrelated event returned error: %v", err)
	}

	event.Data.ID = 111111
	event.Event = "charge.success"
	if err := svc.HandlePaystackEvent(context.Background(), event); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestRecordWebhookEventIdempotency(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, &fakeVerifier{}, &fakeSiteCreator{}, "")

	created, first, err := svc.RecordWebhookEvent(models.WebhookSourcePaystack, "evt_1", "charge.success", []byte(`{"a":1}`), true)
	if err != nil || !created {
		t.Fatalf("first delivery: created=%v err=%v", created, err)
	}
	created, second, err := svc.RecordWebhookEvent(models.WebhookSourcePaystack, "evt_1", "charge.success", []byte(`{"a":1}`), true)
	if err != nil || created {
		t.Fatalf("duplicate delivery: created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate resolved to event %d, want %d", second.ID, first.ID)
	}

	// Events without ids dedupe on payload hash.
	created, _, err = svc.RecordWebhookEvent(models.WebhookSourceProvisioner, "", "site_creation", []byte(`{"b":2}`), true)
	if err != nil || !created {
		t.Fatalf("hash-keyed first delivery: created=%v err=%v", created, err)
	}
	created, _, err = svc.RecordWebhookEvent(models.WebhookSourceProvisioner, "", "site_creation", []byte(`{"b":2}`), true)
	if err != nil || created {
		t.Fatalf("hash-keyed duplicate: created=%v err=%v", created, err)
	}
}
