package repository

import (
	"github.com/CampusConnectNG/CampusConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventTicketRepository struct {
	db *gorm.DB
}

// NewEventTicketRepository creates a new event ticket repository instance
func NewEventTicketRepository(db *gorm.DB) EventTicketRepository {
	return &eventTicketRepository{db: db}
}

// CreateTx inserts a ticket inside the caller's transaction. Conflicts on
// (event, user, payment_reference) are ignored so a retried side effect
// lands on the already-issued ticket.
func (r *eventTicketRepository) CreateTx(tx *gorm.DB, ticket *models.EventTicket) error {
	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "event_id"},
			{Name: "user_id"},
			{Name: "payment_reference"},
		},
		DoNothing: true,
	}).Create(ticket)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Where("event_id = ? AND user_id = ? AND payment_reference = ?",
			ticket.EventID, ticket.UserID, ticket.PaymentReference).
			First(ticket).Error
	}
	return nil
}

func (r *eventTicketRepository) GetByPaymentReference(reference string) (*models.EventTicket, error) {
	var ticket models.EventTicket
	err := r.db.Where("payment_reference = ?", reference).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *eventTicketRepository) GetEvent(eventID uint) (*models.Event, error) {
	var event models.Event
	err := r.db.First(&event, eventID).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventTicketRepository) CountForEvent(eventID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.EventTicket{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}
