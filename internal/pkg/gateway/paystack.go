package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

const defaultPaystackBaseURL = "https://api.paystack.co"

// PaystackAdapter talks to the Paystack transaction API. Amounts on the wire
// are already kobo, matching the ledger's unit.
type PaystackAdapter struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string

	HTTPClient *http.Client
}

func NewPaystackAdapter(cfg *models.GatewayConfig, callbackBase string, timeout time.Duration) *PaystackAdapter {
	return &PaystackAdapter{
		SecretKey:   strings.TrimSpace(cfg.SecretKey),
		BaseURL:     defaultPaystackBaseURL,
		CallbackURL: callbackBase + "/api/v1/payments/return/" + models.GatewayProviderPaystack,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *PaystackAdapter) Name() string { return models.GatewayProviderPaystack }

type paystackInitRequest struct {
	Email       string `json:"email"`
	AmountKobo  int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount"`
	Currency   string `json:"currency"`
}

func (a *PaystackAdapter) InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error) {
	payload, err := json.Marshal(paystackInitRequest{
		Email:       req.PayerEmail,
		AmountKobo:  req.AmountKobo,
		Reference:   req.Reference,
		Currency:    req.Currency,
		CallbackURL: a.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.BaseURL, "/")+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: paystack initialize: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope paystackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: paystack initialize: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		return nil, fmt.Errorf("%w: paystack: %s", ErrProviderRejected, envelope.Message)
	}

	var data paystackInitData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: paystack initialize payload: %v", ErrProviderUnavailable, err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: paystack returned no authorization url", ErrProviderRejected)
	}

	return &ChargeHandle{
		Provider:         a.Name(),
		ProviderRef:      data.Reference,
		AuthorizationURL: data.AuthorizationURL,
	}, nil
}

// VerifyCharge maps Paystack's transaction status vocabulary onto the
// canonical set. Anything that is not a definite success or failure
// (abandoned, ongoing, queued, unknown strings) stays pending.
func (a *PaystackAdapter) VerifyCharge(ctx context.Context, providerRef string) (*VerifyResult, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrProviderRejected)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(a.BaseURL, "/")+"/transaction/verify/"+ref, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.SecretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paystack verify failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("paystack verify payload malformed: %w", err)
	}
	var data paystackVerifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack verify payload malformed: %w", err)
	}

	return &VerifyResult{
		Status:      paystackStatusToCanonical(data.Status),
		AmountKobo:  data.AmountKobo,
		Currency:    data.Currency,
		ProviderRef: data.Reference,
		RawJSON:     string(body),
	}, nil
}

func paystackStatusToCanonical(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return StatusSucceeded
	case "failed", "reversed":
		return StatusFailed
	default:
		// abandoned, ongoing, pending, queued, processing and anything new
		return StatusPending
	}
}
