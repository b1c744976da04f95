package models

import "time"

// EventTicket is the entitlement produced by a successful ticket purchase.
// The unique index over (event_id, user_id, payment_reference) makes issuance
// idempotent when the reconciliation side effect is retried.
type EventTicket struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	EventID          uint      `gorm:"not null;index;index:ux_event_tickets_purchase,unique,priority:1" json:"event_id"`
	UserID           uint      `gorm:"not null;index;index:ux_event_tickets_purchase,unique,priority:2" json:"user_id"`
	PaymentReference string    `gorm:"type:varchar(64);not null;index:ux_event_tickets_purchase,unique,priority:3" json:"payment_reference"`
	Code             string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_event_tickets_code" json:"code"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
