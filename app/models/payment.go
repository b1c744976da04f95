package models

import "time"

// Payment purposes supported by the reconciliation engine.
const (
	PaymentPurposeWalletFunding = "wallet_funding"
	PaymentPurposeEventTicket   = "event_ticket"
)

// Payment statuses. pending is the only non-terminal state; once a payment
// is successful or failed it never changes again.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusSuccessful = "successful"
	PaymentStatusFailed     = "failed"
)

// Payment tracks a charge handed to an external gateway from initiation
// until it resolves. Retained indefinitely as an audit record.
type Payment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Reference   string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_reference" json:"reference"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	PayerName   string     `gorm:"type:varchar(150)" json:"payer_name"`
	PayerEmail  string     `gorm:"type:varchar(200);not null" json:"payer_email"`
	AmountKobo  int64      `gorm:"not null" json:"amount_kobo"`
	Currency    string     `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	Purpose     string     `gorm:"type:varchar(32);not null;index" json:"purpose"`
	Provider    string     `gorm:"type:varchar(20);not null;index:idx_payments_provider_ref,priority:1" json:"provider"`
	ProviderRef string     `gorm:"type:varchar(191);index:idx_payments_provider_ref,priority:2" json:"provider_ref"`
	Status      string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	EventID     *uint      `gorm:"index" json:"event_id,omitempty"`
	VerifyJSON  string     `gorm:"type:longtext" json:"-"`
	ResolvedAt  *time.Time `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the payment has reached a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccessful || p.Status == PaymentStatusFailed
}
