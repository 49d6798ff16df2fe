package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ikechukwuoha/clientportalapp-render/app/controllers"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Transactions
	api.Post("/store-transaction", controllers.HandleStoreTransaction)
	api.Get("/transactions", controllers.HandleGetUserTransactions)
	api.Get("/transactions/:id", controllers.HandleGetTransaction)

	// Site state
	api.Get("/sites-data", controllers.HandleGetSitesData)
	api.Get("/sites-summary", controllers.HandleGetUserSummary)
	api.Get("/active-sites-count", controllers.HandleActiveSitesCount)
	api.Get("/total-sites-count", controllers.HandleTotalSitesCount)
	api.Get("/active-modules", controllers.HandleActiveModules)

	// Webhooks. Provisioner callbacks carry a shared token; the paystack
	// webhook authenticates via its HMAC signature instead.
	webhook := api.Group("/webhook")
	webhook.Post("/site-creation", middleware.ProvisionerWebhookAuth(), controllers.HandleSiteCreationWebhook)
	webhook.Post("/site-data", middleware.ProvisionerWebhookAuth(), controllers.HandleSiteDataWebhook)

	api.Post("/verify-webhook-payload/webhookpaystack", controllers.HandlePaystackWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
