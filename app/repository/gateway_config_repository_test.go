package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

func seedConfig(t *testing.T, db *gorm.DB, provider, mode string, enabled bool, updatedAt time.Time) *models.GatewayConfig {
	t.Helper()
	cfg := &models.GatewayConfig{
		Provider:  provider,
		Mode:      mode,
		Enabled:   enabled,
		SecretKey: "sk_" + mode + "_realkey",
	}
	require.NoError(t, db.Create(cfg).Error)
	// Pin updated_at directly; a regular update would overwrite it again.
	require.NoError(t, db.Model(cfg).UpdateColumn("updated_at", updatedAt).Error)
	cfg.UpdatedAt = updatedAt
	return cfg
}

func TestGetEffectiveLiveBeatsTest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGatewayConfigRepository(db)

	now := time.Now()
	seedConfig(t, db, models.GatewayProviderPaystack, models.GatewayModeTest, true, now)
	live := seedConfig(t, db, models.GatewayProviderPaystack, models.GatewayModeLive, true, now.Add(-time.Hour))

	effective, err := repo.GetEffective(models.GatewayProviderPaystack)
	require.NoError(t, err)
	assert.Equal(t, live.ID, effective.ID)
}

func TestGetEffectiveNewestWinsWithinMode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGatewayConfigRepository(db)

	now := time.Now()
	seedConfig(t, db, models.GatewayProviderMonnify, models.GatewayModeLive, true, now.Add(-2*time.Hour))
	newest := seedConfig(t, db, models.GatewayProviderMonnify, models.GatewayModeLive, true, now)

	effective, err := repo.GetEffective(models.GatewayProviderMonnify)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, effective.ID)
}

func TestGetEffectiveIgnoresDisabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGatewayConfigRepository(db)

	seedConfig(t, db, models.GatewayProviderFlutterwave, models.GatewayModeLive, false, time.Now())

	_, err := repo.GetEffective(models.GatewayProviderFlutterwave)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListEnabledOrdersLiveFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGatewayConfigRepository(db)

	now := time.Now()
	seedConfig(t, db, models.GatewayProviderPaystack, models.GatewayModeTest, true, now)
	seedConfig(t, db, models.GatewayProviderPaystack, models.GatewayModeLive, true, now.Add(-time.Hour))
	seedConfig(t, db, models.GatewayProviderFlutterwave, models.GatewayModeTest, true, now)

	configs, err := repo.ListEnabled()
	require.NoError(t, err)
	require.Len(t, configs, 3)

	// Within a provider the live config sorts first.
	assert.Equal(t, models.GatewayProviderFlutterwave, configs[0].Provider)
	assert.Equal(t, models.GatewayProviderPaystack, configs[1].Provider)
	assert.Equal(t, models.GatewayModeLive, configs[1].Mode)
	assert.Equal(t, models.GatewayModeTest, configs[2].Mode)
}
