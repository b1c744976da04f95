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
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/env"
)

const defaultMonnifyBaseURL = "https://api.monnify.com"

// MonnifyAdapter talks to the Monnify merchant API. Monnify authenticates
// with a short-lived bearer token obtained from the api key/secret pair and
// keys transactions by its own transactionReference, not ours.
type MonnifyAdapter struct {
	APIKey       string
	SecretKey    string
	ContractCode string
	BaseURL      string
	CallbackURL  string

	HTTPClient *http.Client
}

func NewMonnifyAdapter(cfg *models.GatewayConfig, callbackBase string, timeout time.Duration) *MonnifyAdapter {
	return &MonnifyAdapter{
		APIKey:       strings.TrimSpace(cfg.PublicKey),
		SecretKey:    strings.TrimSpace(cfg.SecretKey),
		ContractCode: strings.TrimSpace(env.GetEnv("MONNIFY_CONTRACT_CODE", "")),
		BaseURL:      defaultMonnifyBaseURL,
		CallbackURL:  callbackBase + "/api/v1/payments/return/" + models.GatewayProviderMonnify,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *MonnifyAdapter) Name() string { return models.GatewayProviderMonnify }

type monnifyEnvelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

type monnifyLoginBody struct {
	AccessToken string `json:"accessToken"`
}

type monnifyInitRequest struct {
	Amount             string `json:"amount"`
	CustomerName       string `json:"customerName"`
	CustomerEmail      string `json:"customerEmail"`
	PaymentReference   string `json:"paymentReference"`
	PaymentDescription string `json:"paymentDescription"`
	CurrencyCode       string `json:"currencyCode"`
	ContractCode       string `json:"contractCode"`
	RedirectURL        string `json:"redirectUrl"`
}

type monnifyInitBody struct {
	TransactionReference string `json:"transactionReference"`
	CheckoutURL          string `json:"checkoutUrl"`
}

type monnifyTransactionBody struct {
	TransactionReference string  `json:"transactionReference"`
	PaymentReference     string  `json:"paymentReference"`
	PaymentStatus        string  `json:"paymentStatus"`
	AmountPaid           float64 `json:"amountPaid"`
	CurrencyCode         string  `json:"currencyCode"`
}

// login exchanges the key pair for a bearer token.
func (a *MonnifyAdapter) login(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.BaseURL, "/")+"/api/v1/auth/login", nil)
	if err != nil {
		return "", err
	}
	httpReq.SetBasicAuth(a.APIKey, a.SecretKey)

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("monnify login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("monnify login failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope monnifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || !envelope.RequestSuccessful {
		return "", fmt.Errorf("monnify login rejected: %s", string(body))
	}
	var login monnifyLoginBody
	if err := json.Unmarshal(envelope.ResponseBody, &login); err != nil || login.AccessToken == "" {
		return "", fmt.Errorf("monnify login returned no access token")
	}
	return login.AccessToken, nil
}

func (a *MonnifyAdapter) InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error) {
	token, err := a.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	payload, err := json.Marshal(monnifyInitRequest{
		Amount:             koboToNaira(req.AmountKobo),
		CustomerName:       req.PayerName,
		CustomerEmail:      req.PayerEmail,
		PaymentReference:   req.Reference,
		PaymentDescription: req.Description,
		CurrencyCode:       req.Currency,
		ContractCode:       a.ContractCode,
		RedirectURL:        a.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.BaseURL, "/")+"/api/v1/merchant/transactions/init-transaction",
		bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: monnify init-transaction: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope monnifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: monnify init-transaction: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.RequestSuccessful {
		return nil, fmt.Errorf("%w: monnify: %s", ErrProviderRejected, envelope.ResponseMessage)
	}

	var data monnifyInitBody
	if err := json.Unmarshal(envelope.ResponseBody, &data); err != nil || data.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: monnify returned no checkout url", ErrProviderRejected)
	}

	return &ChargeHandle{
		Provider:         a.Name(),
		ProviderRef:      data.TransactionReference,
		AuthorizationURL: data.CheckoutURL,
	}, nil
}

func (a *MonnifyAdapter) VerifyCharge(ctx context.Context, providerRef string) (*VerifyResult, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrProviderRejected)
	}

	token, err := a.login(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(a.BaseURL, "/")+"/api/v2/transactions/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("monnify verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("monnify verify failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope monnifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || !envelope.RequestSuccessful {
		return nil, fmt.Errorf("monnify verify payload malformed: %s", string(body))
	}
	var data monnifyTransactionBody
	if err := json.Unmarshal(envelope.ResponseBody, &data); err != nil {
		return nil, fmt.Errorf("monnify verify payload malformed: %w", err)
	}

	return &VerifyResult{
		Status:      monnifyStatusToCanonical(data.PaymentStatus),
		AmountKobo:  int64(math.Round(data.AmountPaid * 100)),
		Currency:    data.CurrencyCode,
		ProviderRef: data.TransactionReference,
		RawJSON:     string(body),
	}, nil
}

func monnifyStatusToCanonical(status string) Status {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "OVERPAID":
		return StatusSucceeded
	case "FAILED", "CANCELLED", "EXPIRED":
		return StatusFailed
	default:
		// PENDING, PARTIALLY_PAID, ABANDONED and anything unrecognized
		return StatusPending
	}
}
