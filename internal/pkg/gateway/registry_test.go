package gateway

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
)

func setupRegistry(t *testing.T) (*Registry, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.GatewayConfig{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRegistry(repository.NewGatewayConfigRepository(db), "https://portal.example.edu/"), db
}

func createConfig(t *testing.T, db *gorm.DB, cfg *models.GatewayConfig, updatedAt time.Time) {
	t.Helper()
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("create config: %v", err)
	}
	if err := db.Model(cfg).UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("pin updated_at: %v", err)
	}
}

func TestListUsableProvidersSkipsPlaceholders(t *testing.T) {
	registry, db := setupRegistry(t)
	now := time.Now()

	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_realkey", DisplayName: "Paystack",
	}, now)
	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderFlutterwave, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "FLWSECK-changeme",
	}, now)
	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderMonnify, Mode: models.GatewayModeTest,
		Enabled: false, SecretKey: "mk_test_realkey",
	}, now)

	providers, err := registry.ListUsableProviders()
	if err != nil {
		t.Fatalf("ListUsableProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 usable provider, got %d", len(providers))
	}
	if providers[0].Name != models.GatewayProviderPaystack {
		t.Fatalf("expected paystack, got %s", providers[0].Name)
	}
	if providers[0].DisplayName != "Paystack" {
		t.Fatalf("expected display name Paystack, got %s", providers[0].DisplayName)
	}
}

func TestListUsableProvidersLiveConfigWins(t *testing.T) {
	registry, db := setupRegistry(t)
	now := time.Now()

	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeTest,
		Enabled: true, SecretKey: "sk_test_realkey",
	}, now)
	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_realkey",
	}, now.Add(-time.Hour))

	providers, err := registry.ListUsableProviders()
	if err != nil {
		t.Fatalf("ListUsableProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider entry, got %d", len(providers))
	}
	if providers[0].Mode != models.GatewayModeLive {
		t.Fatalf("expected live config to win, got mode %s", providers[0].Mode)
	}
}

func TestForProviderErrors(t *testing.T) {
	registry, db := setupRegistry(t)

	if _, err := registry.ForProvider("stripe"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("unknown provider: got %v", err)
	}
	if _, err := registry.ForProvider(models.GatewayProviderPaystack); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("unconfigured provider: got %v", err)
	}

	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_xxx",
	}, time.Now())
	if _, err := registry.ForProvider(models.GatewayProviderPaystack); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("placeholder credentials: got %v", err)
	}
}

func TestForProviderBuildsAdapter(t *testing.T) {
	registry, db := setupRegistry(t)
	createConfig(t, db, &models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_realkey",
	}, time.Now())

	adapter, err := registry.ForProvider("  Paystack ")
	if err != nil {
		t.Fatalf("ForProvider: %v", err)
	}
	if adapter.Name() != models.GatewayProviderPaystack {
		t.Fatalf("wrong adapter: %s", adapter.Name())
	}
}
