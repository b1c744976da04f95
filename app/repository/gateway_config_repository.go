package repository

import (
	"strings"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"gorm.io/gorm"
)

type gatewayConfigRepository struct {
	db *gorm.DB
}

// NewGatewayConfigRepository creates a new gateway config repository instance
func NewGatewayConfigRepository(db *gorm.DB) GatewayConfigRepository {
	return &gatewayConfigRepository{db: db}
}

func (r *gatewayConfigRepository) ListEnabled() ([]models.GatewayConfig, error) {
	var configs []models.GatewayConfig
	err := r.db.Where("enabled = ?", true).
		Order("provider ASC, CASE mode WHEN 'live' THEN 0 ELSE 1 END ASC, updated_at DESC").
		Find(&configs).Error
	return configs, err
}

// GetEffective picks the one config callers should use for a provider.
// Ordering does the tie-breaking: live sorts before test ("live" < "test"
// is false lexically, so mode is ordered explicitly), newest update wins
// within a mode.
func (r *gatewayConfigRepository) GetEffective(provider string) (*models.GatewayConfig, error) {
	p := strings.ToLower(strings.TrimSpace(provider))

	var config models.GatewayConfig
	err := r.db.Where("provider = ? AND enabled = ?", p, true).
		Order("CASE mode WHEN 'live' THEN 0 ELSE 1 END ASC, updated_at DESC").
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}
