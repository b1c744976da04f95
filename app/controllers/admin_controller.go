package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/CampusConnectNG/CampusConnect/internal/pkg/metrics/counter"
)

// HandleAdminPaymentMetrics exposes the payment-flow counters for ops.
func HandleAdminPaymentMetrics(c *fiber.Ctx) error {
	snapshot, err := counter.Snapshot()
	if err != nil {
		log.Errorf("[Admin] metrics snapshot failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read metrics")
	}
	return c.JSON(snapshot)
}
