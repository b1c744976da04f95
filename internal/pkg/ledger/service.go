// Package ledger is the wallet ledger service: the single write path for
// balances plus the read-side facade used by purchase flows.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientBalance mirrors the repository sentinel so callers can
	// check at the service boundary.
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrInvalidAmount       = errors.New("amount must be a positive number of kobo")
)

const summaryCacheKeyPrefix = "wallet:summary:"

// Summary is the read model handed to the wallet UI.
type Summary struct {
	UserID             uint                       `json:"user_id"`
	BalanceKobo        int64                      `json:"balance_kobo"`
	Currency           string                     `json:"currency"`
	RecentTransactions []models.WalletTransaction `json:"recent_transactions"`
}

// EntryInput describes one ledger append.
type EntryInput struct {
	AmountKobo   int64
	Description  string
	ExternalRef  string
	TicketID     *uint
	MetadataJSON string
}

// Service validates and routes all wallet reads and writes.
type Service struct {
	repo     repository.WalletRepository
	cacheTTL time.Duration
}

// NewService creates a ledger service. A zero cacheTTL disables the Redis
// summary cache (used by tests).
func NewService(repo repository.WalletRepository, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cacheTTL: cacheTTL}
}

// GetOrCreateWallet lazily provisions the user's wallet.
func (s *Service) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.GetOrCreateWallet(userID)
}

// Credit appends a credit entry. Replays on the same external ref return the
// original entry with applied=false and leave the balance alone.
func (s *Service) Credit(ctx context.Context, userID uint, in EntryInput) (*models.WalletTransaction, bool, error) {
	return s.append(ctx, userID, models.TransactionKindCredit, in, nil)
}

// Debit appends a debit entry, failing with ErrInsufficientBalance when the
// wallet cannot cover it.
func (s *Service) Debit(ctx context.Context, userID uint, in EntryInput) (*models.WalletTransaction, bool, error) {
	return s.append(ctx, userID, models.TransactionKindDebit, in, nil)
}

// CreditTx and DebitTx run inside a caller-owned DB transaction so the
// reconciliation engine can bundle ledger moves with other writes.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID uint, in EntryInput) (*models.WalletTransaction, bool, error) {
	return s.append(ctx, userID, models.TransactionKindCredit, in, tx)
}

func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, userID uint, in EntryInput) (*models.WalletTransaction, bool, error) {
	return s.append(ctx, userID, models.TransactionKindDebit, in, tx)
}

func (s *Service) append(ctx context.Context, userID uint, kind string, in EntryInput, tx *gorm.DB) (*models.WalletTransaction, bool, error) {
	if in.AmountKobo <= 0 {
		return nil, false, ErrInvalidAmount
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, false, errors.New("description is required")
	}
	if userID == 0 {
		return nil, false, errors.New("user_id is required")
	}

	// The wallet lookup must ride the caller's transaction when there is
	// one: a root-handle query here would wait for a second pool connection
	// the open transaction may never release.
	var (
		wallet *models.Wallet
		err    error
	)
	if tx != nil {
		wallet, err = s.repo.GetOrCreateWalletTx(tx, userID)
	} else {
		wallet, err = s.repo.GetOrCreateWallet(userID)
	}
	if err != nil {
		return nil, false, err
	}

	params := repository.AppendParams{
		WalletID:     wallet.ID,
		Kind:         kind,
		AmountKobo:   in.AmountKobo,
		Description:  desc,
		TicketID:     in.TicketID,
		MetadataJSON: in.MetadataJSON,
	}
	if ref := strings.TrimSpace(in.ExternalRef); ref != "" {
		params.ExternalRef = &ref
	}

	var (
		txn     *models.WalletTransaction
		applied bool
	)
	if tx != nil {
		txn, applied, err = s.repo.AppendTransactionTx(tx, params)
	} else {
		txn, applied, err = s.repo.AppendTransaction(params)
	}
	if err != nil {
		return nil, false, err
	}

	if applied {
		s.invalidateSummary(userID)
	}
	return txn, applied, nil
}

// GetBalance reads the current balance. A user without a wallet has zero.
func (s *Service) GetBalance(ctx context.Context, userID uint) (int64, error) {
	_ = ctx
	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.BalanceKobo, nil
}

// HasSufficientBalance is the advisory pre-flight check. The debit itself is
// the authoritative gate; a true answer can still lose to a competing debit.
func (s *Service) HasSufficientBalance(ctx context.Context, userID uint, amountKobo int64) (bool, error) {
	if amountKobo <= 0 {
		return false, ErrInvalidAmount
	}
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amountKobo, nil
}

// ListTransactions returns filtered history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uint, filter repository.TransactionFilter) ([]models.WalletTransaction, error) {
	_ = ctx
	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.WalletTransaction{}, nil
		}
		return nil, err
	}
	return s.repo.ListTransactions(wallet.ID, filter)
}

// GetWalletSummary returns balance plus recent history, cached briefly.
func (s *Service) GetWalletSummary(ctx context.Context, userID uint) (*Summary, error) {
	key := fmt.Sprintf("%s%d", summaryCacheKeyPrefix, userID)
	if s.cacheTTL > 0 {
		if raw, err := cache.Get(key); err == nil && raw != "" {
			var cached Summary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.ListTransactions(wallet.ID, repository.TransactionFilter{Limit: 10})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		UserID:             userID,
		BalanceKobo:        wallet.BalanceKobo,
		Currency:           wallet.Currency,
		RecentTransactions: recent,
	}

	if s.cacheTTL > 0 {
		if raw, err := json.Marshal(summary); err == nil {
			if err := cache.Set(key, string(raw), s.cacheTTL); err != nil {
				log.Warnf("[Ledger] summary cache write failed for user %d: %v", userID, err)
			}
		}
	}
	return summary, nil
}

func (s *Service) invalidateSummary(userID uint) {
	if s.cacheTTL <= 0 {
		return
	}
	key := fmt.Sprintf("%s%d", summaryCacheKeyPrefix, userID)
	if err := cache.Delete(key); err != nil {
		log.Warnf("[Ledger] summary cache invalidation failed for user %d: %v", userID, err)
	}
}
