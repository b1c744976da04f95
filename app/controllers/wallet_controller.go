package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/usercontext"
)

// HandleWalletSummary returns the current balance plus recent history for the
// authenticated user.
func HandleWalletSummary(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}
	userID := usercontext.GetUserID(c)

	summary, err := ledgerService.GetWalletSummary(c.Context(), userID)
	if err != nil {
		log.Errorf("[Wallet] summary failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load wallet")
	}

	return c.JSON(summary)
}

// HandleWalletTransactions returns filtered transaction history, newest first.
// Supported query params: kind (credit|debit), search, limit, offset.
func HandleWalletTransactions(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}
	userID := usercontext.GetUserID(c)

	filter := repository.TransactionFilter{
		Kind:   c.Query("kind"),
		Search: c.Query("search"),
		Limit:  c.QueryInt("limit", 25),
		Offset: c.QueryInt("offset", 0),
	}
	if filter.Kind != "" && filter.Kind != models.TransactionKindCredit && filter.Kind != models.TransactionKindDebit {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "kind must be credit or debit")
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 25
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	transactions, err := ledgerService.ListTransactions(c.Context(), userID, filter)
	if err != nil {
		log.Errorf("[Wallet] transaction list failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load transactions")
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}
