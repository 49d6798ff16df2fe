package controllers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ikechukwuoha/clientportalapp-render/app/models"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/env"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/paystack"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/provisioning"
)

const eventIDHeader = "X-Event-ID"

// HandleSiteCreationWebhook ingests the provisioner's completion callback.
// Deliveries are recorded idempotently; a replay is acknowledged without
// being re-applied. Processing problems are reported in the body, not as
// HTTP errors, so the sender does not retry permanently broken payloads.
func HandleSiteCreationWebhook(c *fiber.Ctx) error {
	var event provisioning.SiteCreationEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	svc := GetProvisioningService()
	eventID := strings.TrimSpace(c.Get(eventIDHeader))
	if eventID == "" && event.JobID != "" {
		eventID = "job:" + event.JobID + ":" + event.Status
	}
	created, record, err := svc.RecordWebhookEvent(models.WebhookSourceProvisioner, eventID, "site_creation."+event.Status, c.Body(), true)
	if err != nil {
		log.Errorf("failed to record site-creation webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record webhook"})
	}
	if !created {
		return c.JSON(fiber.Map{"status": "success", "message": "duplicate delivery ignored", "duplicate": true})
	}

	result := svc.HandleSiteCreationEvent(c.UserContext(), event)
	var processingErr error
	if result.Status != "success" {
		processingErr = fmt.Errorf("%s", result.Message)
	}
	if err := svc.MarkWebhookProcessed(record.ID, processingErr); err != nil {
		log.Errorf("failed to mark webhook %d processed: %v", record.ID, err)
	}
	return c.JSON(result)
}

// HandlePaystackWebhook ingests charge events from the payment gateway. The
// HMAC-SHA512 signature over the raw body is mandatory; a mismatch is a 400.
func HandlePaystackWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("PAYSTACK_SECRET_KEY", "")
	body := c.Body()

	if !paystack.VerifyWebhookSignature(body, c.Get("x-paystack-signature"), secret) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid webhook signature"})
	}

	var event provisioning.PaystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	svc := GetProvisioningService()
	eventID := fmt.Sprintf("%s:%d", event.Event, event.Data.ID)
	created, record, err := svc.RecordWebhookEvent(models.WebhookSourcePaystack, eventID, event.Event, body, true)
	if err != nil {
		log.Errorf("failed to record paystack webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record webhook"})
	}
	if !created {
		return c.JSON(fiber.Map{"status": "success", "message": "duplicate delivery ignored", "duplicate": true})
	}

	processingErr := svc.HandlePaystackEvent(c.UserContext(), event)
	if processingErr != nil {
		log.Errorf("paystack webhook %s failed: %v", eventID, processingErr)
	}
	if err := svc.MarkWebhookProcessed(record.ID, processingErr); err != nil {
		log.Errorf("failed to mark webhook %d processed: %v", record.ID, err)
	}

	if processingErr != nil {
		// Acknowledge anyway; the gateway re-verification path cannot be
		// fixed by sender retries.
		return c.JSON(fiber.Map{"status": "error", "message": processingErr.Error()})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "event processed"})
}
