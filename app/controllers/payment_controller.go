package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/payments"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/usercontext"
)

// HandleListProviders returns the payment providers currently usable for
// checkout, in preference order.
func HandleListProviders(c *fiber.Ctx) error {
	providers, err := gatewayRegistry.ListUsableProviders()
	if err != nil {
		log.Errorf("[Payments] provider listing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load providers")
	}
	return c.JSON(fiber.Map{"providers": providers})
}

// InitiatePaymentRequest is the checkout request body.
type InitiatePaymentRequest struct {
	Purpose    string `json:"purpose" validate:"required,oneof=wallet_funding event_ticket"`
	AmountKobo int64  `json:"amount_kobo" validate:"omitempty,gt=0"`
	EventID    *uint  `json:"event_id"`
	Provider   string `json:"provider" validate:"omitempty,oneof=paystack flutterwave monnify"`
	PayerName  string `json:"payer_name" validate:"omitempty,max=100"`
	PayerEmail string `json:"payer_email" validate:"required,email"`
}

// HandleInitiatePayment starts a purchase. Ticket purchases covered by the
// wallet are debited immediately; everything else returns a provider redirect.
func HandleInitiatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	outcome, err := paymentsService.InitiatePurchase(c.Context(), payments.PurchaseInput{
		UserID:     userCtx.UserID,
		Purpose:    req.Purpose,
		AmountKobo: req.AmountKobo,
		EventID:    req.EventID,
		Provider:   req.Provider,
		PayerName:  req.PayerName,
		PayerEmail: req.PayerEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrUnsupportedPurpose):
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, gateway.ErrProviderUnavailable):
			return jsonError(c, fiber.StatusBadGateway, "provider_unavailable", "Payment provider is not reachable")
		case errors.Is(err, gateway.ErrProviderRejected):
			return jsonError(c, fiber.StatusUnprocessableEntity, "provider_rejected", "Payment provider rejected the charge")
		}
		log.Errorf("[Payments] initiate failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to initiate payment")
	}

	return c.Status(fiber.StatusCreated).JSON(outcome)
}

// HandlePaymentStatus is the status poll used while a redirect is in flight.
func HandlePaymentStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	payment, err := paymentsService.GetPayment(c.Context(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, payments.ErrUnknownReference) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No payment found for reference")
		}
		log.Errorf("[Payments] status lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payment")
	}
	if payment.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No payment found for reference")
	}

	return c.JSON(fiber.Map{
		"reference":   payment.Reference,
		"status":      payment.Status,
		"purpose":     payment.Purpose,
		"provider":    payment.Provider,
		"amount_kobo": payment.AmountKobo,
		"currency":    payment.Currency,
	})
}

// HandlePaymentReturn is the browser redirect target after checkout. The
// reference in the query string is untrusted; reconciliation re-verifies with
// the provider before anything changes.
func HandlePaymentReturn(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	reference := firstQueryValue(c, "reference", "tx_ref", "paymentReference", "trxref")
	if reference == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing payment reference")
	}

	outcome, err := paymentsService.Reconcile(c.Context(), provider, reference)
	if err != nil {
		return reconcileError(c, provider, reference, err)
	}
	return c.JSON(outcome)
}

// HandleProviderWebhook ingests provider callbacks. Redeliveries answer 200
// from recorded state so providers stop retrying.
func HandleProviderWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get(gateway.SignatureHeaderName(provider)))

	outcome, err := paymentsService.HandleCallback(c.Context(), provider, rawBody, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			log.Warnf("[Payments] webhook signature rejected for provider %s", provider)
			return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Webhook signature verification failed")
		}
		return reconcileError(c, provider, "", err)
	}

	return c.JSON(fiber.Map{"ok": true, "status": outcome.Status, "duplicate": outcome.Duplicate})
}

func reconcileError(c *fiber.Ctx, provider, reference string, err error) error {
	switch {
	case errors.Is(err, payments.ErrUnknownReference):
		return jsonError(c, fiber.StatusNotFound, "not_found", "No payment found for reference")
	case errors.Is(err, gateway.ErrProviderUnavailable):
		return jsonError(c, fiber.StatusBadGateway, "provider_unavailable", "Payment provider is not reachable")
	}
	log.Errorf("[Payments] reconcile failed: provider=%s ref=%s err=%v", provider, reference, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Reconciliation failed")
}

func firstQueryValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}
