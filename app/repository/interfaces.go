package repository

import (
	"github.com/CampusConnectNG/CampusConnect/app/models"
	"gorm.io/gorm"
)

// AppendParams carries everything needed to append one ledger entry.
type AppendParams struct {
	WalletID     uint
	Kind         string
	AmountKobo   int64
	Description  string
	ExternalRef  *string
	TicketID     *uint
	MetadataJSON string
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	Kind   string // "credit", "debit" or empty for all
	Search string // free-text match on description/external_ref
	Limit  int
	Offset int
}

// WalletRepository is the ledger store: wallets plus their immutable
// transaction history. AppendTransaction is the only balance mutation path.
type WalletRepository interface {
	GetOrCreateWallet(userID uint) (*models.Wallet, error)
	// GetOrCreateWalletTx resolves the wallet on the caller's transaction
	// handle. Required whenever the append itself runs inside that
	// transaction: a root-handle lookup would need a second pool connection
	// while the open transaction holds one.
	GetOrCreateWalletTx(tx *gorm.DB, userID uint) (*models.Wallet, error)
	GetByUserID(userID uint) (*models.Wallet, error)
	// AppendTransaction atomically inserts a ledger entry and moves the
	// balance. The bool result is false when an entry with the same
	// (wallet, external ref) already existed and was returned instead.
	AppendTransaction(p AppendParams) (*models.WalletTransaction, bool, error)
	// AppendTransactionTx is AppendTransaction running inside a caller-owned
	// transaction, so the reconciliation engine can compose ledger moves
	// with side-effect writes in one unit.
	AppendTransactionTx(tx *gorm.DB, p AppendParams) (*models.WalletTransaction, bool, error)
	ListTransactions(walletID uint, filter TransactionFilter) ([]models.WalletTransaction, error)
}

// PaymentRepository persists payment intents and their one-way status moves.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByReference(reference string) (*models.Payment, error)
	GetByProviderRef(provider, providerRef string) (*models.Payment, error)
	SetProviderRef(id uint, providerRef string) error
	// MarkTerminal moves pending -> status exactly once. Re-marking with the
	// same terminal status is a no-op; a different terminal status returns
	// ErrConflictingTerminalState and leaves the first outcome in place.
	MarkTerminal(id uint, status, providerRef, verifyJSON string) error
	MarkTerminalTx(tx *gorm.DB, id uint, status, providerRef, verifyJSON string) error
	ListByUser(userID uint, limit, offset int) ([]models.Payment, error)
}

// GatewayConfigRepository reads administrator-managed provider credentials.
type GatewayConfigRepository interface {
	ListEnabled() ([]models.GatewayConfig, error)
	// GetEffective returns the single config callers should use for the
	// provider: live beats test, newest updated_at breaks ties.
	GetEffective(provider string) (*models.GatewayConfig, error)
}

// EventTicketRepository persists issued tickets.
type EventTicketRepository interface {
	CreateTx(tx *gorm.DB, ticket *models.EventTicket) error
	GetByPaymentReference(reference string) (*models.EventTicket, error)
	GetEvent(eventID uint) (*models.Event, error)
	CountForEvent(eventID uint) (int64, error)
}

// UserRepository resolves portal accounts for wallet operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}
