package repository

import (
	"errors"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"gorm.io/gorm"
)

// ErrConflictingTerminalState signals that a provider reported two different
// outcomes for the same payment. The first recorded outcome stays
// authoritative; this error exists so operators get alerted.
var ErrConflictingTerminalState = errors.New("payment already resolved with a different terminal state")

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByReference(reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByProviderRef(provider, providerRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("provider = ? AND provider_ref = ?", provider, providerRef).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) SetProviderRef(id uint, providerRef string) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", id).
		Update("provider_ref", providerRef).Error
}

func (r *paymentRepository) MarkTerminal(id uint, status, providerRef, verifyJSON string) error {
	return r.MarkTerminalTx(r.db, id, status, providerRef, verifyJSON)
}

// MarkTerminalTx transitions pending -> terminal with a conditional update so
// two concurrent reconciliations cannot both win. When no row moves, the
// stored status decides between idempotent no-op and integrity violation.
func (r *paymentRepository) MarkTerminalTx(tx *gorm.DB, id uint, status, providerRef, verifyJSON string) error {
	if status != models.PaymentStatusSuccessful && status != models.PaymentStatusFailed {
		return errors.New("terminal status must be successful or failed")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      status,
		"resolved_at": &now,
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	if verifyJSON != "" {
		updates["verify_json"] = verifyJSON
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var stored models.Payment
	if err := tx.First(&stored, id).Error; err != nil {
		return err
	}
	if stored.Status == status {
		return nil
	}
	return ErrConflictingTerminalState
}

func (r *paymentRepository) ListByUser(userID uint, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	return payments, err
}
