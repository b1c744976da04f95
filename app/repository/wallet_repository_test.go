package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

func TestGetOrCreateWalletReturnsSameWallet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	first, err := repo.GetOrCreateWallet(7)
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	assert.Equal(t, models.WalletCurrencyNGN, first.Currency)
	assert.EqualValues(t, 0, first.BalanceKobo)

	second, err := repo.GetOrCreateWallet(7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Wallet{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAppendTransactionMovesBalance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(1)
	require.NoError(t, err)

	_, applied, err := repo.AppendTransaction(AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindCredit,
		AmountKobo:  50000,
		Description: "Wallet funding via paystack",
		ExternalRef: strPtr("ccp_fund_1"),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	_, applied, err = repo.AppendTransaction(AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindDebit,
		AmountKobo:  20000,
		Description: "Ticket: Tech Mixer",
		ExternalRef: strPtr("ccp_ticket_1"),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := repo.GetByUserID(1)
	require.NoError(t, err)
	assert.EqualValues(t, 30000, stored.BalanceKobo)

	// Balance must equal the signed sum of all entries.
	txns, err := repo.ListTransactions(wallet.ID, TransactionFilter{})
	require.NoError(t, err)
	var sum int64
	for i := range txns {
		sum += txns[i].Signed()
	}
	assert.Equal(t, stored.BalanceKobo, sum)
}

func TestDebitInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(2)
	require.NoError(t, err)

	_, _, err = repo.AppendTransaction(AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindCredit,
		AmountKobo:  1000,
		Description: "Wallet funding",
		ExternalRef: strPtr("ccp_small"),
	})
	require.NoError(t, err)

	_, _, err = repo.AppendTransaction(AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindDebit,
		AmountKobo:  1001,
		Description: "Ticket: too expensive",
		ExternalRef: strPtr("ccp_over"),
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The rejected debit must leave neither an entry nor a balance change.
	stored, err := repo.GetByUserID(2)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, stored.BalanceKobo)

	var count int64
	require.NoError(t, db.Model(&models.WalletTransaction{}).
		Where("wallet_id = ? AND external_ref = ?", wallet.ID, "ccp_over").Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAppendTransactionReplayIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(3)
	require.NoError(t, err)

	params := AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindCredit,
		AmountKobo:  75000,
		Description: "Wallet funding via flutterwave",
		ExternalRef: strPtr("ccp_replay"),
	}

	first, applied, err := repo.AppendTransaction(params)
	require.NoError(t, err)
	assert.True(t, applied)

	second, applied, err := repo.AppendTransaction(params)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repo.GetByUserID(3)
	require.NoError(t, err)
	assert.EqualValues(t, 75000, stored.BalanceKobo)
}

func TestNilExternalRefsNeverCollide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, applied, err := repo.AppendTransaction(AppendParams{
			WalletID:    wallet.ID,
			Kind:        models.TransactionKindCredit,
			AmountKobo:  100,
			Description: "manual adjustment",
		})
		require.NoError(t, err)
		assert.True(t, applied)
	}

	stored, err := repo.GetByUserID(4)
	require.NoError(t, err)
	assert.EqualValues(t, 300, stored.BalanceKobo)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(5)
	require.NoError(t, err)
	_, _, err = repo.AppendTransaction(AppendParams{
		WalletID:    wallet.ID,
		Kind:        models.TransactionKindCredit,
		AmountKobo:  10000,
		Description: "Wallet funding",
		ExternalRef: strPtr("ccp_race_fund"),
	})
	require.NoError(t, err)

	const workers = 10
	const debit = 3000

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, errs[n] = repo.AppendTransaction(AppendParams{
				WalletID:    wallet.ID,
				Kind:        models.TransactionKindDebit,
				AmountKobo:  debit,
				Description: "Ticket: race",
				ExternalRef: strPtr(fmt.Sprintf("ccp_race_%d", n)),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, ErrInsufficientBalance), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, succeeded)

	stored, err := repo.GetByUserID(5)
	require.NoError(t, err)
	assert.EqualValues(t, 10000-3*debit, stored.BalanceKobo)
	assert.GreaterOrEqual(t, stored.BalanceKobo, int64(0))
}

func TestListTransactionsFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWalletRepository(db)

	wallet, err := repo.GetOrCreateWallet(6)
	require.NoError(t, err)

	seed := []AppendParams{
		{WalletID: wallet.ID, Kind: models.TransactionKindCredit, AmountKobo: 5000, Description: "Wallet funding via paystack", ExternalRef: strPtr("ccp_a")},
		{WalletID: wallet.ID, Kind: models.TransactionKindDebit, AmountKobo: 2000, Description: "Ticket: Hackathon", ExternalRef: strPtr("ccp_b")},
		{WalletID: wallet.ID, Kind: models.TransactionKindCredit, AmountKobo: 1000, Description: "Wallet funding via monnify", ExternalRef: strPtr("ccp_c")},
	}
	for _, p := range seed {
		_, _, err := repo.AppendTransaction(p)
		require.NoError(t, err)
	}

	credits, err := repo.ListTransactions(wallet.ID, TransactionFilter{Kind: models.TransactionKindCredit})
	require.NoError(t, err)
	assert.Len(t, credits, 2)

	hits, err := repo.ListTransactions(wallet.ID, TransactionFilter{Search: "Hackathon"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, models.TransactionKindDebit, hits[0].Kind)

	limited, err := repo.ListTransactions(wallet.ID, TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
