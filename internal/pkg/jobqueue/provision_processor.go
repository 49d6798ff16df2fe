package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// processSiteProvisioningJob re-runs site creation for a transaction whose
// inline attempt failed. The provisioning service itself decides whether the
// transaction still needs a retry; a transaction that has already moved past
// "failed" makes this a no-op success.
func (q *Queue) processSiteProvisioningJob(ctx context.Context, job *Job) error {
	if q.provisioner == nil {
		return fmt.Errorf("no provisioner configured")
	}

	payload, err := SiteProvisioningJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid site provisioning payload: %w", err)
	}
	if payload.TransactionID == "" {
		return fmt.Errorf("site provisioning payload without transaction id")
	}

	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := q.provisioner.RetryProvisioning(callCtx, payload.TransactionID); err != nil {
		return fmt.Errorf("provisioning retry for transaction %s: %w", payload.TransactionID, err)
	}

	log.Infof("[JobQueue] Provisioning retry succeeded for transaction %s (site %s)", payload.TransactionID, payload.SiteName)
	return nil
}
