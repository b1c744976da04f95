package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/CampusConnectNG/CampusConnect/app/controllers"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		// Webhooks must never be throttled away; providers treat non-2xx as
		// a delivery failure and retry aggressively.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/v1/webhooks")
		},
	}))

	v1 := api.Group("/v1")

	wallet := v1.Group("/wallet", middleware.RequireAuth)
	wallet.Get("/", controllers.HandleWalletSummary)
	wallet.Get("/transactions", controllers.HandleWalletTransactions)

	pay := v1.Group("/payments")
	pay.Get("/providers", controllers.HandleListProviders)
	pay.Post("/initiate", middleware.RequireAuth, controllers.HandleInitiatePayment)
	// Redirect returns arrive without our auth header; the reference alone
	// drives reconciliation and the response leaks nothing user-specific.
	pay.Get("/return/:provider", controllers.HandlePaymentReturn)
	pay.Get("/:reference", middleware.RequireAuth, controllers.HandlePaymentStatus)

	v1.Post("/webhooks/:provider", controllers.HandleProviderWebhook)

	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/payments/metrics", controllers.HandleAdminPaymentMetrics)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
