package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CampusConnectNG/CampusConnect/app/models"
	"github.com/CampusConnectNG/CampusConnect/app/repository"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/cache"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/gateway"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/ledger"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/middleware"
	"github.com/CampusConnectNG/CampusConnect/internal/pkg/payments"
)

func TestMain(m *testing.M) {
	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "miniredis:", err)
		os.Exit(1)
	}
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	code := m.Run()
	mr.Close()
	os.Exit(code)
}

type apiFixture struct {
	app    *fiber.App
	db     *gorm.DB
	repos  *repository.Repositories
	ledger *ledger.Service
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Wallet{}, &models.WalletTransaction{},
		&models.Payment{}, &models.GatewayConfig{}, &models.Event{}, &models.EventTicket{},
	))

	factory := repository.NewFactory(db)
	repository.SetGlobalFactory(factory)
	repos := factory.GetRepositories()

	require.NoError(t, db.Create(&models.User{Name: "Ada Obi", Email: "ada@unilag.edu.ng", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}).Error)
	require.NoError(t, db.Create(&models.User{Name: "Blocked", Email: "blocked@unilag.edu.ng", Role: models.ROLE_USER, Status: models.STATUS_DISABLED}).Error)
	require.NoError(t, db.Create(&models.User{Name: "Bursary", Email: "bursary@unilag.edu.ng", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE}).Error)

	registry := gateway.NewRegistry(repos.GatewayConfig, "https://portal.example.edu")
	ledgerSvc := ledger.NewService(repos.Wallet, 0)
	paymentsSvc := payments.NewService(db, repos, ledgerSvc, registry, nil)
	InitServices(ledgerSvc, paymentsSvc, registry)

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware())

	v1 := app.Group("/api/v1")
	wallet := v1.Group("/wallet", middleware.RequireAuth)
	wallet.Get("/", HandleWalletSummary)
	wallet.Get("/transactions", HandleWalletTransactions)
	pay := v1.Group("/payments")
	pay.Get("/providers", HandleListProviders)
	pay.Post("/initiate", middleware.RequireAuth, HandleInitiatePayment)
	pay.Get("/return/:provider", HandlePaymentReturn)
	pay.Get("/:reference", middleware.RequireAuth, HandlePaymentStatus)
	v1.Post("/webhooks/:provider", HandleProviderWebhook)
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/payments/metrics", HandleAdminPaymentMetrics)

	return &apiFixture{app: app, db: db, repos: repos, ledger: ledgerSvc}
}

func doRequest(t *testing.T, app *fiber.App, method, path string, userID string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestWalletSummaryRequiresAuth(t *testing.T) {
	f := setupAPI(t)

	resp, _ := doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/", "999", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/", "2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWalletSummaryReturnsBalance(t *testing.T) {
	f := setupAPI(t)
	_, _, err := f.ledger.Credit(context.Background(), 1, ledger.EntryInput{AmountKobo: 25000, Description: "Wallet funding", ExternalRef: "ccp_api"})
	require.NoError(t, err)

	resp, body := doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/", "1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary ledger.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.EqualValues(t, 25000, summary.BalanceKobo)
	assert.Equal(t, models.WalletCurrencyNGN, summary.Currency)
	assert.Len(t, summary.RecentTransactions, 1)
}

func TestWalletTransactionsRejectsBadKind(t *testing.T) {
	f := setupAPI(t)

	resp, _ := doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/transactions?kind=transfer", "1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/wallet/transactions?kind=credit", "1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListProvidersOnlyUsable(t *testing.T) {
	f := setupAPI(t)
	require.NoError(t, f.db.Create(&models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_realkey", DisplayName: "Paystack",
	}).Error)
	require.NoError(t, f.db.Create(&models.GatewayConfig{
		Provider: models.GatewayProviderFlutterwave, Mode: models.GatewayModeTest,
		Enabled: true, SecretKey: "FLWSECK-xxx",
	}).Error)

	resp, body := doRequest(t, f.app, http.MethodGet, "/api/v1/payments/providers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Providers []gateway.ProviderDescriptor `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Providers, 1)
	assert.Equal(t, models.GatewayProviderPaystack, out.Providers[0].Name)
}

func TestInitiatePaymentValidation(t *testing.T) {
	f := setupAPI(t)

	resp, _ := doRequest(t, f.app, http.MethodPost, "/api/v1/payments/initiate", "1", map[string]interface{}{
		"purpose": "donation", "payer_email": "ada@unilag.edu.ng",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodPost, "/api/v1/payments/initiate", "1", map[string]interface{}{
		"purpose": "wallet_funding", "amount_kobo": 1000, "payer_email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInitiateTicketPurchaseCoveredByWallet(t *testing.T) {
	f := setupAPI(t)
	event := &models.Event{Title: "Dinner Gala", PriceKobo: 20000, CreatedBy: 1}
	require.NoError(t, f.db.Create(event).Error)
	_, _, err := f.ledger.Credit(context.Background(), 1, ledger.EntryInput{AmountKobo: 50000, Description: "Wallet funding", ExternalRef: "ccp_fund_api"})
	require.NoError(t, err)

	resp, body := doRequest(t, f.app, http.MethodPost, "/api/v1/payments/initiate", "1", map[string]interface{}{
		"purpose":     "event_ticket",
		"event_id":    event.ID,
		"payer_email": "ada@unilag.edu.ng",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var outcome payments.PurchaseOutcome
	require.NoError(t, json.Unmarshal(body, &outcome))
	assert.Equal(t, "debited", outcome.Mode)
	assert.NotZero(t, outcome.TicketID)
}

func TestPaymentStatusHiddenAcrossUsers(t *testing.T) {
	f := setupAPI(t)
	payment := &models.Payment{
		Reference: "ccp_status", UserID: 2, PayerEmail: "blocked@unilag.edu.ng",
		AmountKobo: 100, Currency: models.WalletCurrencyNGN,
		Purpose: models.PaymentPurposeWalletFunding, Provider: models.GatewayProviderPaystack,
		Status: models.PaymentStatusPending,
	}
	require.NoError(t, f.repos.Payment.Create(payment))

	// Another user's payment reads as not found.
	resp, _ := doRequest(t, f.app, http.MethodGet, "/api/v1/payments/ccp_status", "1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/payments/ccp_missing", "1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := setupAPI(t)
	require.NoError(t, f.db.Create(&models.GatewayConfig{
		Provider: models.GatewayProviderPaystack, Mode: models.GatewayModeLive,
		Enabled: true, SecretKey: "sk_live_realkey",
	}).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack",
		bytes.NewReader([]byte(`{"event":"charge.success","data":{"reference":"ccp_x"}}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", "deadbeef")

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminMetricsRequiresAdminRole(t *testing.T) {
	f := setupAPI(t)

	resp, _ := doRequest(t, f.app, http.MethodGet, "/api/v1/admin/payments/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A regular member is authenticated but not authorized.
	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/admin/payments/metrics", "1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, f.app, http.MethodGet, "/api/v1/admin/payments/metrics", "3", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPaymentReturnRequiresReference(t *testing.T) {
	f := setupAPI(t)

	resp, _ := doRequest(t, f.app, http.MethodGet, "/api/v1/payments/return/paystack", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
