package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/database"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/frappe"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/jobqueue"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/paystack"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/provisioning"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/sitename"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/sitestate"
)

var (
	provisioningSvc  *provisioning.Service
	sitestateSvc     *sitestate.Service
	servicesInitOnce sync.Once
)

func initServices() {
	servicesInitOnce.Do(func() {
		db := database.GetDB()
		paystackClient := paystack.NewClientFromEnv()
		frappeClient := frappe.NewClientFromEnv()
		suffix := env.GetEnv("SITE_DOMAIN_SUFFIX", sitename.DefaultSuffix)

		provisioningSvc = provisioning.NewServiceFromDB(db, paystackClient, frappeClient, suffix).
			WithRetryEnqueuer(enqueueProvisioningRetry)
		sitestateSvc = sitestate.NewServiceFromDB(db, frappeClient)
	})
}

// GetProvisioningService returns the shared provisioning service, building it
// on first use. Also consumed by main to wire the job queue processor.
func GetProvisioningService() *provisioning.Service {
	initServices()
	return provisioningSvc
}

func getSiteStateService() *sitestate.Service {
	initServices()
	return sitestateSvc
}

// SetServicesForTest swaps the shared services; test use only.
func SetServicesForTest(p *provisioning.Service, s *sitestate.Service) {
	servicesInitOnce.Do(func() {})
	provisioningSvc = p
	sitestateSvc = s
}

func enqueueProvisioningRetry(transactionID string) {
	payload := jobqueue.SiteProvisioningJobPayload{TransactionID: transactionID}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeSiteProvisioning, payload.ToMap()); err != nil {
		log.Errorf("failed to enqueue provisioning retry for transaction %s: %v", transactionID, err)
	}
}
