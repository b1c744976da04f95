package models

import "time"

// Event is a community event that members can buy tickets for.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Venue       string    `gorm:"type:varchar(200)" json:"venue"`
	PriceKobo   int64     `gorm:"not null;default:0" json:"price_kobo"`
	StartsAt    time.Time `gorm:"type:timestamp;not null" json:"starts_at"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
