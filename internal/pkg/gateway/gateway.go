// Package gateway hides the portal's payment providers (Paystack,
// Flutterwave, Monnify) behind one initiate/verify interface and normalizes
// their status vocabularies into succeeded/failed/pending.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"gorm.io/gorm"
)

// Status is the canonical charge status shared by all providers.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusPending covers everything that is not a definite outcome,
	// including ambiguous or malformed provider payloads. Pending is always
	// retryable; it is never collapsed into failed.
	StatusPending Status = "pending"
)

var (
	ErrProviderUnavailable = errors.New("payment provider is not available")
	ErrProviderRejected    = errors.New("payment provider rejected the charge")
)

// ChargeRequest describes a charge to initiate. Amounts are kobo.
type ChargeRequest struct {
	Reference   string
	AmountKobo  int64
	Currency    string
	PayerName   string
	PayerEmail  string
	Description string
	CallbackURL string
}

// ChargeHandle is what the caller needs to send the user to the provider.
type ChargeHandle struct {
	Provider         string
	ProviderRef      string
	AuthorizationURL string
}

// VerifyResult is a provider verification response mapped onto the canonical
// status set. RawJSON keeps the untouched provider payload for the audit
// trail.
type VerifyResult struct {
	Status      Status
	AmountKobo  int64
	Currency    string
	ProviderRef string
	RawJSON     string
}

// Adapter is one provider integration. Implementations never touch the
// ledger; they only talk to the provider's API.
type Adapter interface {
	Name() string
	InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error)
	VerifyCharge(ctx context.Context, providerRef string) (*VerifyResult, error)
}

// ProviderDescriptor is the caller-facing listing entry for a usable provider.
type ProviderDescriptor struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	LogoURL     string `json:"logo_url"`
	Mode        string `json:"mode"`
}

// Registry builds adapters from the administrator-managed gateway configs.
type Registry struct {
	configs     repository.GatewayConfigRepository
	callbackURL string
	httpTimeout time.Duration
}

// NewRegistry creates a registry. callbackBase is the public portal base URL
// used to build provider redirect targets.
func NewRegistry(configs repository.GatewayConfigRepository, callbackBase string) *Registry {
	return &Registry{
		configs:     configs,
		callbackURL: strings.TrimRight(callbackBase, "/"),
		httpTimeout: 15 * time.Second,
	}
}

// ListUsableProviders returns enabled providers holding real credentials.
// The repository already orders live before test and newest first, so the
// first config seen per provider is the effective one.
func (r *Registry) ListUsableProviders() ([]ProviderDescriptor, error) {
	configs, err := r.configs.ListEnabled()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(configs))
	out := make([]ProviderDescriptor, 0, len(configs))
	for i := range configs {
		cfg := configs[i]
		if _, ok := seen[cfg.Provider]; ok {
			continue
		}
		seen[cfg.Provider] = struct{}{}
		if !cfg.HasUsableCredentials() {
			continue
		}
		if !knownProvider(cfg.Provider) {
			continue
		}
		name := cfg.DisplayName
		if name == "" {
			name = cfg.Provider
		}
		out = append(out, ProviderDescriptor{
			Name:        cfg.Provider,
			DisplayName: name,
			LogoURL:     cfg.LogoURL,
			Mode:        cfg.Mode,
		})
	}
	return out, nil
}

// ForProvider resolves the effective config and builds its adapter.
func (r *Registry) ForProvider(name string) (Adapter, error) {
	p := strings.ToLower(strings.TrimSpace(name))
	if !knownProvider(p) {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, name)
	}

	cfg, err := r.configs.GetEffective(p)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s is not configured", ErrProviderUnavailable, p)
		}
		return nil, err
	}
	if !cfg.HasUsableCredentials() {
		return nil, fmt.Errorf("%w: %s has placeholder credentials", ErrProviderUnavailable, p)
	}

	switch p {
	case models.GatewayProviderPaystack:
		return NewPaystackAdapter(cfg, r.callbackURL, r.httpTimeout), nil
	case models.GatewayProviderFlutterwave:
		return NewFlutterwaveAdapter(cfg, r.callbackURL, r.httpTimeout), nil
	case models.GatewayProviderMonnify:
		return NewMonnifyAdapter(cfg, r.callbackURL, r.httpTimeout), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, name)
}

// WebhookSecret exposes the effective secret for signature checks.
func (r *Registry) WebhookSecret(name string) (string, error) {
	cfg, err := r.configs.GetEffective(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return "", err
	}
	return cfg.SecretKey, nil
}

func knownProvider(name string) bool {
	switch name {
	case models.GatewayProviderPaystack, models.GatewayProviderFlutterwave, models.GatewayProviderMonnify:
		return true
	}
	return false
}

// koboToNaira renders a kobo amount as the decimal naira string some
// provider APIs expect.
func koboToNaira(kobo int64) string {
	return fmt.Sprintf("%d.%02d", kobo/100, kobo%100)
}
