package models

import "time"

// Transaction kinds. A credit raises the wallet balance, a debit lowers it.
const (
	TransactionKindCredit = "credit"
	TransactionKindDebit  = "debit"
)

// WalletTransaction is an immutable ledger entry. Rows are only ever
// inserted; corrections happen by appending a compensating entry.
// (wallet_id, external_ref) is unique so replayed provider callbacks cannot
// produce a second entry for the same external event.
type WalletTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	WalletID     uint      `gorm:"not null;index;index:ux_wallet_transactions_external_ref,unique,priority:1" json:"wallet_id"`
	Kind         string    `gorm:"type:varchar(10);not null;index" json:"kind"`
	AmountKobo   int64     `gorm:"not null" json:"amount_kobo"`
	Description  string    `gorm:"type:varchar(255);not null" json:"description"`
	ExternalRef  *string   `gorm:"type:varchar(191);index:ux_wallet_transactions_external_ref,unique,priority:2" json:"external_ref,omitempty"`
	TicketID     *uint     `gorm:"index" json:"ticket_id,omitempty"`
	MetadataJSON string    `gorm:"type:text" json:"metadata_json,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Signed returns the transaction amount with its ledger sign applied.
func (t *WalletTransaction) Signed() int64 {
	if t.Kind == TransactionKindDebit {
		return -t.AmountKobo
	}
	return t.AmountKobo
}
