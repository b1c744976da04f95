package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/ledger"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/payments"
)

var validate = validator.New()

// Shared service handles, wired once at startup.
var (
	ledgerService   *ledger.Service
	paymentsService *payments.Service
	gatewayRegistry *gateway.Registry
)

// InitServices hands the controllers their service dependencies. Must run
// before the router is mounted.
func InitServices(ledgerSvc *ledger.Service, paymentsSvc *payments.Service, registry *gateway.Registry) {
	ledgerService = ledgerSvc
	paymentsService = paymentsSvc
	gatewayRegistry = registry
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}
