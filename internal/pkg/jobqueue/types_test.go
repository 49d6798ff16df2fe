package jobqueue

import (
	"testing"
	"time"
)

func TestSiteProvisioningJobPayloadRoundTrip(t *testing.T) {
	payload := SiteProvisioningJobPayload{
		TransactionID: "3b9aca00-0000-4000-8000-000000000001",
		SiteName:      "acmecorp.purpledove.net",
	}

	got, err := SiteProvisioningJobPayloadFromMap(payload.ToMap())
	if err != nil {
		t.Fatalf("FromMap returned error: %v", err)
	}
	if got.TransactionID != payload.TransactionID || got.SiteName != payload.SiteName {
		t.Errorf("round trip = %+v, want %+v", got, payload)
	}
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeSiteProvisioning,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	if job.Status != JobStatusProcessing || job.ProcessedAt == nil {
		t.Errorf("after MarkAsProcessing: %+v", job)
	}

	job.MarkAsFailed("backend unreachable")
	if job.Status != JobStatusFailed || job.RetryCount != 1 {
		t.Errorf("after MarkAsFailed: %+v", job)
	}
	if !job.IsRetryable() {
		t.Error("one failure with retries left should be retryable")
	}

	job.RetryCount = job.MaxRetries
	if job.IsRetryable() {
		t.Error("job at max retries must not be retryable")
	}

	job.MarkAsCompleted()
	if job.Status != JobStatusCompleted || job.CompletedAt == nil || job.ErrorMsg != "" {
		t.Errorf("after MarkAsCompleted: %+v", job)
	}
}
