package models

import "time"

// Default wallet currency. Amounts are stored in kobo (smallest NGN unit).
const WalletCurrencyNGN = "NGN"

// Wallet holds a user's spendable balance. One wallet per user; the balance
// is never written directly; it only moves by appending a WalletTransaction.
type Wallet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:ux_wallets_user" json:"user_id"`
	BalanceKobo int64     `gorm:"not null;default:0" json:"balance_kobo"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
