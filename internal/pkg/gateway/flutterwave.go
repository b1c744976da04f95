package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

const defaultFlutterwaveBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveAdapter talks to the Flutterwave v3 API. Flutterwave amounts
// are major units (naira), so values convert at the boundary.
type FlutterwaveAdapter struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string

	HTTPClient *http.Client
}

func NewFlutterwaveAdapter(cfg *models.GatewayConfig, callbackBase string, timeout time.Duration) *FlutterwaveAdapter {
	return &FlutterwaveAdapter{
		SecretKey:   strings.TrimSpace(cfg.SecretKey),
		BaseURL:     defaultFlutterwaveBaseURL,
		CallbackURL: callbackBase + "/api/v1/payments/return/" + models.GatewayProviderFlutterwave,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *FlutterwaveAdapter) Name() string { return models.GatewayProviderFlutterwave }

type flutterwaveCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type flutterwaveInitRequest struct {
	TxRef       string              `json:"tx_ref"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	RedirectURL string              `json:"redirect_url"`
	Customer    flutterwaveCustomer `json:"customer"`
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type flutterwaveInitData struct {
	Link string `json:"link"`
}

type flutterwaveVerifyData struct {
	TxRef    string  `json:"tx_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (a *FlutterwaveAdapter) InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error) {
	payload, err := json.Marshal(flutterwaveInitRequest{
		TxRef:       req.Reference,
		Amount:      koboToNaira(req.AmountKobo),
		Currency:    req.Currency,
		RedirectURL: a.CallbackURL,
		Customer: flutterwaveCustomer{
			Email: req.PayerEmail,
			Name:  req.PayerName,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.BaseURL, "/")+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: flutterwave payments: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope flutterwaveEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: flutterwave payments: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.Status != "success" {
		return nil, fmt.Errorf("%w: flutterwave: %s", ErrProviderRejected, envelope.Message)
	}

	var data flutterwaveInitData
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Link == "" {
		return nil, fmt.Errorf("%w: flutterwave returned no payment link", ErrProviderRejected)
	}

	// Flutterwave keys the transaction by our tx_ref.
	return &ChargeHandle{
		Provider:         a.Name(),
		ProviderRef:      req.Reference,
		AuthorizationURL: data.Link,
	}, nil
}

func (a *FlutterwaveAdapter) VerifyCharge(ctx context.Context, providerRef string) (*VerifyResult, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrProviderRejected)
	}

	verifyURL := strings.TrimRight(a.BaseURL, "/") +
		"/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(ref)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.SecretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flutterwave verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("flutterwave verify failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope flutterwaveEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("flutterwave verify payload malformed: %w", err)
	}
	var data flutterwaveVerifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("flutterwave verify payload malformed: %w", err)
	}

	return &VerifyResult{
		Status:      flutterwaveStatusToCanonical(data.Status),
		AmountKobo:  int64(math.Round(data.Amount * 100)),
		Currency:    data.Currency,
		ProviderRef: data.TxRef,
		RawJSON:     string(body),
	}, nil
}

func flutterwaveStatusToCanonical(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "successful":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}
