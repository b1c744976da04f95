package models

import (
	"strings"
	"time"
)

// Gateway providers integrated by the portal.
const (
	GatewayProviderPaystack    = "paystack"
	GatewayProviderFlutterwave = "flutterwave"
	GatewayProviderMonnify     = "monnify"
)

// Gateway operating modes.
const (
	GatewayModeTest = "test"
	GatewayModeLive = "live"
)

// GatewayConfig holds administrator-managed credentials for one provider in
// one mode. At most one config per provider is effective at a time: live
// beats test, and among several configs of the same mode the most recently
// updated one wins.
type GatewayConfig struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Provider    string    `gorm:"type:varchar(20);not null;index:idx_gateway_configs_provider_mode,priority:1" json:"provider"`
	Mode        string    `gorm:"type:varchar(8);not null;default:'test';index:idx_gateway_configs_provider_mode,priority:2" json:"mode"`
	Enabled     bool      `gorm:"default:false;index" json:"enabled"`
	DisplayName string    `gorm:"type:varchar(100)" json:"display_name"`
	LogoURL     string    `gorm:"type:varchar(255)" json:"logo_url"`
	PublicKey   string    `gorm:"type:varchar(255)" json:"-"`
	SecretKey   string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// placeholder values admins leave in seeded rows before entering real keys
var placeholderKeyMarkers = []string{"xxx", "changeme", "your-", "placeholder"}

// HasUsableCredentials reports whether the config carries real credential
// material. Empty or obviously seeded keys make the provider unusable.
func (g *GatewayConfig) HasUsableCredentials() bool {
	secret := strings.ToLower(strings.TrimSpace(g.SecretKey))
	if secret == "" {
		return false
	}
	for _, marker := range placeholderKeyMarkers {
		if strings.Contains(secret, marker) {
			return false
		}
	}
	return true
}
