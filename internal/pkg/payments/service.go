// Package payments tracks charges handed to external gateways and
// reconciles their untrusted, possibly-duplicated outcomes into exactly-once
// ledger and entitlement state.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/ledger"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrUnknownReference rejects inbound signals that match no payment we
	// initiated. No record is ever fabricated from an unverified callback.
	ErrUnknownReference = errors.New("no payment found for reference")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	// ErrSideEffectFailed wraps a failing bound side effect. On the direct
	// debit path it means the whole purchase rolled back.
	ErrSideEffectFailed   = errors.New("payment side effect failed")
	ErrUnsupportedPurpose = errors.New("unsupported payment purpose")

	// ErrConflictingTerminalState re-exports the repository sentinel.
	ErrConflictingTerminalState = repository.ErrConflictingTerminalState
)

// AdapterProvider is the slice of the gateway registry the engine needs.
type AdapterProvider interface {
	ForProvider(name string) (gateway.Adapter, error)
	ListUsableProviders() ([]gateway.ProviderDescriptor, error)
	WebhookSecret(name string) (string, error)
}

// RetryEnqueuer queues a failed credit-path side effect for reliable retry.
type RetryEnqueuer interface {
	EnqueueSideEffectRetry(reference string) error
}

// Outcome statuses reported to callers.
const (
	OutcomeCredited     = "credited"
	OutcomeTicketIssued = "ticket_issued"
	OutcomeFailed       = "failed"
	OutcomeProcessing   = "processing"
)

// Outcome is the result of one reconciliation attempt.
type Outcome struct {
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount_kobo"`
	// Duplicate marks a redelivery that was answered from recorded state
	// without re-verifying or re-applying anything.
	Duplicate bool  `json:"duplicate"`
	TicketID  uint  `json:"ticket_id,omitempty"`
}

// PurchaseInput is the initiatePurchase entry point input.
type PurchaseInput struct {
	UserID     uint
	Purpose    string
	AmountKobo int64 // required for wallet_funding; ignored for event_ticket (event price wins)
	EventID    *uint
	Provider   string
	PayerName  string
	PayerEmail string
}

// PurchaseOutcome tells the caller whether the wallet covered the purchase
// or the user must be redirected to a provider.
type PurchaseOutcome struct {
	Mode             string `json:"mode"` // "debited" or "redirect"
	Reference        string `json:"reference"`
	Provider         string `json:"provider,omitempty"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AmountKobo       int64  `json:"amount_kobo"`
	TicketID         uint   `json:"ticket_id,omitempty"`
}

// Service is the payment intent manager plus reconciliation engine.
type Service struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	tickets  repository.EventTicketRepository
	ledger   *ledger.Service
	gateways AdapterProvider
	retry    RetryEnqueuer

	verifyAttempts int
	verifyTimeout  time.Duration
}

// NewService wires the engine. retry may be nil in tests; failed credit-path
// side effects are then only logged.
func NewService(db *gorm.DB, repos *repository.Repositories, ledgerSvc *ledger.Service, gateways AdapterProvider, retry RetryEnqueuer) *Service {
	return &Service{
		db:             db,
		payments:       repos.Payment,
		tickets:        repos.EventTicket,
		ledger:         ledgerSvc,
		gateways:       gateways,
		retry:          retry,
		verifyAttempts: 3,
		verifyTimeout:  10 * time.Second,
	}
}

// NewReference mints a local payment reference, later reused as the ledger's
// idempotency key.
func NewReference() string {
	return "ccp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateIntentInput carries intent creation fields.
type CreateIntentInput struct {
	UserID     uint
	AmountKobo int64
	Purpose    string
	Provider   string
	EventID    *uint
	PayerName  string
	PayerEmail string
}

// CreateIntent records a pending charge before anything is sent to a
// provider. It never touches the ledger.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput) (*models.Payment, error) {
	_ = ctx
	if in.UserID == 0 {
		return nil, errors.New("user_id is required")
	}
	if in.AmountKobo <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if in.Purpose != models.PaymentPurposeWalletFunding && in.Purpose != models.PaymentPurposeEventTicket {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPurpose, in.Purpose)
	}
	if strings.TrimSpace(in.PayerEmail) == "" {
		return nil, errors.New("payer email is required")
	}

	payment := &models.Payment{
		Reference:  NewReference(),
		UserID:     in.UserID,
		PayerName:  strings.TrimSpace(in.PayerName),
		PayerEmail: strings.TrimSpace(in.PayerEmail),
		AmountKobo: in.AmountKobo,
		Currency:   models.WalletCurrencyNGN,
		Purpose:    in.Purpose,
		Provider:   strings.ToLower(strings.TrimSpace(in.Provider)),
		Status:     models.PaymentStatusPending,
		EventID:    in.EventID,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// InitiatePurchase is the single purchase entry point. Ticket purchases that
// the wallet can cover are debited immediately; everything else goes through
// a provider redirect.
func (s *Service) InitiatePurchase(ctx context.Context, in PurchaseInput) (*PurchaseOutcome, error) {
	if in.UserID == 0 {
		return nil, errors.New("user_id is required")
	}

	amount := in.AmountKobo
	description := "Wallet funding"
	if in.Purpose == models.PaymentPurposeEventTicket {
		if in.EventID == nil {
			return nil, errors.New("event_id is required for ticket purchases")
		}
		event, err := s.tickets.GetEvent(*in.EventID)
		if err != nil {
			return nil, err
		}
		amount = event.PriceKobo
		description = "Ticket: " + event.Title

		sufficient, err := s.ledger.HasSufficientBalance(ctx, in.UserID, amount)
		if err != nil {
			return nil, err
		}
		if sufficient {
			return s.purchaseTicketWithWallet(ctx, in.UserID, event)
		}
	} else if in.Purpose != models.PaymentPurposeWalletFunding {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPurpose, in.Purpose)
	}

	payment, err := s.CreateIntent(ctx, CreateIntentInput{
		UserID:     in.UserID,
		AmountKobo: amount,
		Purpose:    in.Purpose,
		Provider:   in.Provider,
		EventID:    in.EventID,
		PayerName:  in.PayerName,
		PayerEmail: in.PayerEmail,
	})
	if err != nil {
		return nil, err
	}

	adapter, err := s.gateways.ForProvider(payment.Provider)
	if err != nil {
		return nil, err
	}

	handle, err := adapter.InitiateCharge(ctx, gateway.ChargeRequest{
		Reference:   payment.Reference,
		AmountKobo:  payment.AmountKobo,
		Currency:    payment.Currency,
		PayerName:   payment.PayerName,
		PayerEmail:  payment.PayerEmail,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	if handle.ProviderRef != "" {
		if err := s.payments.SetProviderRef(payment.ID, handle.ProviderRef); err != nil {
			return nil, err
		}
	}

	return &PurchaseOutcome{
		Mode:             "redirect",
		Reference:        payment.Reference,
		Provider:         payment.Provider,
		AuthorizationURL: handle.AuthorizationURL,
		AmountKobo:       payment.AmountKobo,
	}, nil
}

// purchaseTicketWithWallet debits the wallet and issues the ticket in one
// database transaction. A failing ticket write rolls the debit back; unlike
// the provider-funded path there is no received money to protect.
func (s *Service) purchaseTicketWithWallet(ctx context.Context, userID uint, event *models.Event) (*PurchaseOutcome, error) {
	reference := NewReference()
	ticket := &models.EventTicket{
		EventID:          event.ID,
		UserID:           userID,
		PaymentReference: reference,
		Code:             uuid.NewString(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tickets.CreateTx(tx, ticket); err != nil {
			return fmt.Errorf("%w: ticket issuance: %v", ErrSideEffectFailed, err)
		}
		_, _, err := s.ledger.DebitTx(ctx, tx, userID, ledger.EntryInput{
			AmountKobo:  event.PriceKobo,
			Description: "Ticket: " + event.Title,
			ExternalRef: reference,
			TicketID:    &ticket.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Payments] wallet debit purchase: user=%d event=%d ref=%s amount=%d",
		userID, event.ID, reference, event.PriceKobo)

	return &PurchaseOutcome{
		Mode:       "debited",
		Reference:  reference,
		AmountKobo: event.PriceKobo,
		TicketID:   ticket.ID,
	}, nil
}

// GetPayment resolves a payment by local reference for status polling.
func (s *Service) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	_ = ctx
	payment, err := s.payments.GetByReference(strings.TrimSpace(reference))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return payment, nil
}
