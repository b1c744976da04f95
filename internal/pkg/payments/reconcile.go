package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/ledger"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconcile turns a provider reference from a redirect return or webhook,
// which may arrive zero, one or many times, into exactly-once internal
// state change.
//
// Two independent idempotency barriers protect the credit: the cheap
// already-terminal short-circuit below, and the ledger's (wallet, external
// ref) uniqueness that holds even when two concurrent attempts both pass the
// first check.
func (s *Service) Reconcile(ctx context.Context, provider, providerRef string) (*Outcome, error) {
	payment, err := s.findPayment(provider, providerRef)
	if err != nil {
		return nil, err
	}

	// Already resolved: answer from recorded state, no re-verify, no re-apply.
	if payment.IsTerminal() {
		outcome := s.outcomeForPayment(payment)
		outcome.Duplicate = true
		return outcome, nil
	}

	adapter, err := s.gateways.ForProvider(payment.Provider)
	if err != nil {
		return nil, err
	}

	result := s.verifyWithRetries(ctx, adapter, payment)
	if result.Status == gateway.StatusPending {
		log.Infof("[Payments] reconcile pending: ref=%s provider=%s", payment.Reference, payment.Provider)
		s.count(payment.Provider, OutcomeProcessing)
		return &Outcome{
			Status:     OutcomeProcessing,
			Reference:  payment.Reference,
			AmountKobo: payment.AmountKobo,
		}, nil
	}

	// An underpaid "success" must not credit the full intent amount.
	if result.Status == gateway.StatusSucceeded &&
		result.AmountKobo > 0 && result.AmountKobo < payment.AmountKobo {
		log.Errorf("[Payments] amount mismatch on ref=%s: expected %d, provider reports %d, failing intent",
			payment.Reference, payment.AmountKobo, result.AmountKobo)
		result.Status = gateway.StatusFailed
	}

	if result.Status == gateway.StatusFailed {
		if err := s.markTerminal(payment, models.PaymentStatusFailed, result); err != nil {
			return s.resolveConflict(payment, err)
		}
		s.count(payment.Provider, OutcomeFailed)
		return &Outcome{
			Status:     OutcomeFailed,
			Reference:  payment.Reference,
			AmountKobo: payment.AmountKobo,
		}, nil
	}

	// Success: terminal mark + ledger credit commit together. The credit's
	// external ref is our payment reference, so a racing reconciliation
	// that slips past the terminal check still cannot double-credit.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.payments.MarkTerminalTx(tx, payment.ID, models.PaymentStatusSuccessful,
			result.ProviderRef, result.RawJSON); err != nil {
			return err
		}
		_, _, err := s.ledger.CreditTx(ctx, tx, payment.UserID, ledger.EntryInput{
			AmountKobo:  payment.AmountKobo,
			Description: fundingDescription(payment),
			ExternalRef: payment.Reference,
		})
		return err
	})
	if err != nil {
		return s.resolveConflict(payment, err)
	}
	payment.Status = models.PaymentStatusSuccessful

	if err := s.applySideEffect(ctx, payment); err != nil {
		// Money received is real: the credit stands and the side effect is
		// queued for retry. Crediting twice would be far worse than a
		// delayed ticket.
		log.Errorf("[Payments] side effect failed for ref=%s: %v, queued for retry", payment.Reference, err)
		if s.retry != nil {
			if qerr := s.retry.EnqueueSideEffectRetry(payment.Reference); qerr != nil {
				log.Errorf("[Payments] could not enqueue side effect retry for ref=%s: %v", payment.Reference, qerr)
			}
		}
	}

	// Computed after the side effect so a queued-for-retry ticket reads as
	// processing, never as an entitlement that does not exist yet.
	outcome := s.outcomeForPayment(payment)
	s.count(payment.Provider, outcome.Status)
	return outcome, nil
}

// HandleCallback is the webhook entry point: signature check, reference
// extraction, then the same reconcile path as a redirect return.
func (s *Service) HandleCallback(ctx context.Context, provider string, payload []byte, signatureHeader string) (*Outcome, error) {
	p := strings.ToLower(strings.TrimSpace(provider))

	secret, err := s.gateways.WebhookSecret(p)
	if err != nil {
		return nil, fmt.Errorf("%w: no usable config for %s", gateway.ErrProviderUnavailable, p)
	}
	if !gateway.VerifyWebhookSignature(p, payload, signatureHeader, secret) {
		return nil, ErrInvalidSignature
	}

	reference, err := extractWebhookReference(p, payload)
	if err != nil {
		return nil, err
	}

	if err := counter.AddWebhookReceived(p); err != nil {
		log.Debugf("[Payments] webhook counter write failed: %v", err)
	}

	outcome, err := s.Reconcile(ctx, p, reference)
	if err != nil {
		return nil, err
	}
	if outcome.Duplicate {
		if err := counter.AddWebhookDuplicate(p); err != nil {
			log.Debugf("[Payments] duplicate counter write failed: %v", err)
		}
	}
	return outcome, nil
}

// RetrySideEffect re-runs the bound side effect for a successful payment.
// Invoked by the job queue; an error requeues the job.
func (s *Service) RetrySideEffect(ctx context.Context, reference string) error {
	payment, err := s.payments.GetByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownReference
		}
		return err
	}
	if payment.Status != models.PaymentStatusSuccessful {
		// Nothing to do for pending or failed intents.
		return nil
	}
	return s.applySideEffect(ctx, payment)
}

// findPayment resolves the inbound reference. Paystack and Flutterwave echo
// our reference; Monnify uses its own transactionReference, hence the
// provider-ref lookup first.
func (s *Service) findPayment(provider, providerRef string) (*models.Payment, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, ErrUnknownReference
	}

	payment, err := s.payments.GetByProviderRef(p, ref)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment, err = s.payments.GetByReference(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	if payment.Provider != p {
		return nil, ErrUnknownReference
	}
	return payment, nil
}

// verifyWithRetries calls the provider's verification endpoint with bounded
// attempts. Transient errors and exhausted budgets surface as pending, never
// failed, so a slow provider cannot cause a false permanent failure.
func (s *Service) verifyWithRetries(ctx context.Context, adapter gateway.Adapter, payment *models.Payment) *gateway.VerifyResult {
	ref := payment.ProviderRef
	if ref == "" {
		ref = payment.Reference
	}

	for attempt := 1; attempt <= s.verifyAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
		result, err := adapter.VerifyCharge(attemptCtx, ref)
		cancel()
		if err == nil {
			return result
		}
		log.Warnf("[Payments] verify attempt %d/%d failed for ref=%s: %v",
			attempt, s.verifyAttempts, payment.Reference, err)
	}
	return &gateway.VerifyResult{Status: gateway.StatusPending}
}

func (s *Service) markTerminal(payment *models.Payment, status string, result *gateway.VerifyResult) error {
	if err := s.payments.MarkTerminal(payment.ID, status, result.ProviderRef, result.RawJSON); err != nil {
		return err
	}
	payment.Status = status
	return nil
}

// resolveConflict handles a lost race or a provider contradicting an
// earlier outcome: the first recorded terminal state wins and conflicts are
// loudly reported, never silently overwritten.
func (s *Service) resolveConflict(payment *models.Payment, cause error) (*Outcome, error) {
	if !errors.Is(cause, ErrConflictingTerminalState) {
		return nil, cause
	}

	log.Errorf("[Payments] conflicting terminal state for ref=%s provider=%s: %v, keeping first recorded outcome",
		payment.Reference, payment.Provider, cause)

	stored, err := s.payments.GetByReference(payment.Reference)
	if err != nil {
		return nil, cause
	}
	outcome := s.outcomeForPayment(stored)
	outcome.Duplicate = true
	return outcome, nil
}

func (s *Service) outcomeForPayment(payment *models.Payment) *Outcome {
	outcome := &Outcome{
		Reference:  payment.Reference,
		AmountKobo: payment.AmountKobo,
	}
	switch payment.Status {
	case models.PaymentStatusFailed:
		outcome.Status = OutcomeFailed
	case models.PaymentStatusSuccessful:
		if payment.Purpose == models.PaymentPurposeEventTicket {
			ticket, err := s.tickets.GetByPaymentReference(payment.Reference)
			if err != nil {
				// Credit recorded, ticket still pending a retry: the caller
				// gets a processing answer, not a claimed ticket.
				outcome.Status = OutcomeProcessing
			} else {
				outcome.Status = OutcomeTicketIssued
				outcome.TicketID = ticket.ID
			}
		} else {
			outcome.Status = OutcomeCredited
		}
	default:
		outcome.Status = OutcomeProcessing
	}
	return outcome
}

// applySideEffect runs the action bound to the payment's purpose. Wallet
// funding needs nothing beyond the credit; ticket purchases issue the ticket
// and move the credited funds out again in one transaction. Both legs are
// idempotent, so retries land on already-written rows.
func (s *Service) applySideEffect(ctx context.Context, payment *models.Payment) error {
	switch payment.Purpose {
	case models.PaymentPurposeWalletFunding:
		return nil
	case models.PaymentPurposeEventTicket:
		return s.issueTicketForPayment(ctx, payment)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedPurpose, payment.Purpose)
}

func (s *Service) issueTicketForPayment(ctx context.Context, payment *models.Payment) error {
	if payment.EventID == nil {
		return fmt.Errorf("%w: ticket payment %s has no event", ErrSideEffectFailed, payment.Reference)
	}
	event, err := s.tickets.GetEvent(*payment.EventID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSideEffectFailed, err)
	}

	ticket := &models.EventTicket{
		EventID:          event.ID,
		UserID:           payment.UserID,
		PaymentReference: payment.Reference,
		Code:             uuid.NewString(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tickets.CreateTx(tx, ticket); err != nil {
			return err
		}
		_, _, err := s.ledger.DebitTx(ctx, tx, payment.UserID, ledger.EntryInput{
			AmountKobo:  payment.AmountKobo,
			Description: "Ticket: " + event.Title,
			ExternalRef: payment.Reference + "/ticket",
			TicketID:    &ticket.ID,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSideEffectFailed, err)
	}

	log.Infof("[Payments] ticket issued: ref=%s event=%d user=%d ticket=%d",
		payment.Reference, event.ID, payment.UserID, ticket.ID)
	return nil
}

func (s *Service) count(provider, outcome string) {
	if err := counter.AddReconcileOutcome(provider, outcome); err != nil {
		log.Debugf("[Payments] outcome counter write failed: %v", err)
	}
}

func fundingDescription(payment *models.Payment) string {
	if payment.Purpose == models.PaymentPurposeEventTicket {
		return "Ticket payment via " + payment.Provider
	}
	return "Wallet funding via " + payment.Provider
}

// extractWebhookReference pulls the transaction reference out of a provider
// webhook body. Shapes differ per provider; anything unparseable is rejected
// rather than guessed at.
func extractWebhookReference(provider string, payload []byte) (string, error) {
	switch provider {
	case models.GatewayProviderPaystack:
		var body struct {
			Event string `json:"event"`
			Data  struct {
				Reference string `json:"reference"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: malformed paystack payload", ErrUnknownReference)
		}
		if body.Data.Reference == "" {
			return "", fmt.Errorf("%w: paystack payload missing reference", ErrUnknownReference)
		}
		return body.Data.Reference, nil

	case models.GatewayProviderFlutterwave:
		var body struct {
			Event string `json:"event"`
			Data  struct {
				TxRef string `json:"tx_ref"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: malformed flutterwave payload", ErrUnknownReference)
		}
		if body.Data.TxRef == "" {
			return "", fmt.Errorf("%w: flutterwave payload missing tx_ref", ErrUnknownReference)
		}
		return body.Data.TxRef, nil

	case models.GatewayProviderMonnify:
		var body struct {
			EventType string `json:"eventType"`
			EventData struct {
				TransactionReference string `json:"transactionReference"`
				PaymentReference     string `json:"paymentReference"`
			} `json:"eventData"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: malformed monnify payload", ErrUnknownReference)
		}
		if body.EventData.TransactionReference != "" {
			return body.EventData.TransactionReference, nil
		}
		if body.EventData.PaymentReference != "" {
			return body.EventData.PaymentReference, nil
		}
		return "", fmt.Errorf("%w: monnify payload missing reference", ErrUnknownReference)
	}
	return "", fmt.Errorf("%w: unknown provider %q", gateway.ErrProviderUnavailable, provider)
}
