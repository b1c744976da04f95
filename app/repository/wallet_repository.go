package repository

import (
	"errors"
	"strings"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientBalance is returned when a debit would take the wallet
// below zero. The conditional balance update is the authoritative gate;
// callers must not rely on a prior read.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// walletRepository implements WalletRepository on GORM.
type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// GetOrCreateWallet returns the user's wallet, creating it on first use.
// The conflict-ignoring insert makes concurrent first use safe: both racers
// end up reading the same row.
func (r *walletRepository) GetOrCreateWallet(userID uint) (*models.Wallet, error) {
	return getOrCreateWallet(r.db, userID)
}

// GetOrCreateWalletTx is GetOrCreateWallet on a caller-owned transaction, so
// composed writes never reach for a second pool connection mid-transaction.
func (r *walletRepository) GetOrCreateWalletTx(tx *gorm.DB, userID uint) (*models.Wallet, error) {
	return getOrCreateWallet(tx, userID)
}

func getOrCreateWallet(db *gorm.DB, userID uint) (*models.Wallet, error) {
	wallet := &models.Wallet{
		UserID:   userID,
		Currency: models.WalletCurrencyNGN,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(wallet).Error; err != nil {
		return nil, err
	}

	var stored models.Wallet
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *walletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepository) AppendTransaction(p AppendParams) (*models.WalletTransaction, bool, error) {
	var (
		txn     *models.WalletTransaction
		created bool
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, created, err = r.AppendTransactionTx(tx, p)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return txn, created, nil
}

// AppendTransactionTx inserts the ledger row first (conflict-ignoring on the
// external ref) and only touches the balance when the insert actually landed.
// A lost insert race therefore never double-applies, and a failed balance
// condition rolls the insert back with the surrounding transaction.
func (r *walletRepository) AppendTransactionTx(tx *gorm.DB, p AppendParams) (*models.WalletTransaction, bool, error) {
	entry := &models.WalletTransaction{
		WalletID:     p.WalletID,
		Kind:         p.Kind,
		AmountKobo:   p.AmountKobo,
		Description:  p.Description,
		ExternalRef:  p.ExternalRef,
		TicketID:     p.TicketID,
		MetadataJSON: p.MetadataJSON,
	}

	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "wallet_id"},
			{Name: "external_ref"},
		},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		// Replay of an already-applied external event: hand back the
		// original entry, balance untouched.
		var existing models.WalletTransaction
		if err := tx.Where("wallet_id = ? AND external_ref = ?", p.WalletID, p.ExternalRef).
			First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}

	switch p.Kind {
	case models.TransactionKindDebit:
		// Conditional update is the linearization point: two competing
		// debits serialize here and only one can pass the balance check.
		upd := tx.Model(&models.Wallet{}).
			Where("id = ? AND balance_kobo >= ?", p.WalletID, p.AmountKobo).
			Update("balance_kobo", gorm.Expr("balance_kobo - ?", p.AmountKobo))
		if upd.Error != nil {
			return nil, false, upd.Error
		}
		if upd.RowsAffected == 0 {
			return nil, false, ErrInsufficientBalance
		}
	case models.TransactionKindCredit:
		upd := tx.Model(&models.Wallet{}).
			Where("id = ?", p.WalletID).
			Update("balance_kobo", gorm.Expr("balance_kobo + ?", p.AmountKobo))
		if upd.Error != nil {
			return nil, false, upd.Error
		}
		if upd.RowsAffected == 0 {
			return nil, false, gorm.ErrRecordNotFound
		}
	default:
		return nil, false, errors.New("unknown transaction kind: " + p.Kind)
	}

	return entry, true, nil
}

func (r *walletRepository) ListTransactions(walletID uint, filter TransactionFilter) ([]models.WalletTransaction, error) {
	query := r.db.Where("wallet_id = ?", walletID)

	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("description LIKE ? OR external_ref LIKE ?", like, like)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var txns []models.WalletTransaction
	err := query.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&txns).Error
	return txns, err
}
