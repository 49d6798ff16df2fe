package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikechukwuoha/clientportalapp-render/app/repository"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/paystack"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/provisioning"
)

// HandleStoreTransaction verifies a payment, persists the transaction and
// triggers site provisioning. A failed payment is rejected with no record; a
// provisioning failure after a successful payment still returns 200 with
// site_creation_status="failed" embedded.
func HandleStoreTransaction(c *fiber.Ctx) error {
	payload := map[string]any{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	result, err := GetProvisioningService().StoreTransaction(c.UserContext(), payload)
	if err != nil {
		return storeTransactionError(c, err)
	}
	return c.JSON(result)
}

func storeTransactionError(c *fiber.Ctx, err error) error {
	var fieldErr *provisioning.FieldError
	if errors.As(err, &fieldErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": fieldErr.Error()})
	}
	var siteErr *provisioning.InvalidSiteNameError
	if errors.As(err, &siteErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": siteErr.Error()})
	}

	switch {
	case errors.Is(err, provisioning.ErrInvalidUserID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id format"})
	case errors.Is(err, provisioning.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
	case errors.Is(err, provisioning.ErrPaymentFailed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_failed", "message": "Payment verification failed, transaction not stored"})
	case errors.Is(err, provisioning.ErrUnexpectedPaymentStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unexpected payment verification status"})
	case errors.Is(err, paystack.ErrUnauthorized):
		log.Error("paystack rejected our credentials during verification")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "bad_gateway", "message": "Payment gateway rejected verification"})
	default:
		log.Errorf("store transaction failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to store transaction"})
	}
}

// HandleGetUserTransactions lists a user's transactions newest first, each
// carrying the current activity flag of its site.
func HandleGetUserTransactions(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid or missing user_id"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	repo := repository.GetGlobalFactory().GetTransactionRepository()
	rows, err := repo.GetByUserID(userID, (page-1)*limit, limit)
	if err != nil {
		log.Errorf("failed to list transactions for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load transactions"})
	}
	total, err := repo.CountByUserID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count transactions"})
	}

	return c.JSON(fiber.Map{
		"transactions": rows,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

// HandleGetTransaction returns one transaction by id.
func HandleGetTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid transaction id"})
	}

	txn, err := repository.GetGlobalFactory().GetTransactionRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Transaction not found"})
		}
		log.Errorf("failed to load transaction %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load transaction"})
	}
	return c.JSON(txn)
}
