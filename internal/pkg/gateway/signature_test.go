package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

func hmacSHA512Hex(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignaturePaystack(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"ccp_1"}}`)
	secret := "sk_live_secret"
	sig := hmacSHA512Hex(payload, secret)

	if !VerifyWebhookSignature(models.GatewayProviderPaystack, payload, sig, secret) {
		t.Fatal("valid paystack signature rejected")
	}
	if VerifyWebhookSignature(models.GatewayProviderPaystack, payload, sig, "wrong-secret") {
		t.Fatal("signature accepted with wrong secret")
	}
	if VerifyWebhookSignature(models.GatewayProviderPaystack, []byte("tampered"), sig, secret) {
		t.Fatal("signature accepted for tampered payload")
	}
	if VerifyWebhookSignature(models.GatewayProviderPaystack, payload, "not-hex!", secret) {
		t.Fatal("malformed signature accepted")
	}
}

func TestVerifyWebhookSignatureMonnify(t *testing.T) {
	payload := []byte(`{"eventType":"SUCCESSFUL_TRANSACTION"}`)
	secret := "monnify-secret"
	sig := hmacSHA512Hex(payload, secret)

	if !VerifyWebhookSignature(models.GatewayProviderMonnify, payload, sig, secret) {
		t.Fatal("valid monnify signature rejected")
	}
}

func TestVerifyWebhookSignatureFlutterwave(t *testing.T) {
	payload := []byte(`{"event":"charge.completed"}`)
	secret := "flw-verif-hash"

	if !VerifyWebhookSignature(models.GatewayProviderFlutterwave, payload, secret, secret) {
		t.Fatal("matching verif-hash rejected")
	}
	if VerifyWebhookSignature(models.GatewayProviderFlutterwave, payload, "other", secret) {
		t.Fatal("mismatched verif-hash accepted")
	}
}

func TestVerifyWebhookSignatureEdgeCases(t *testing.T) {
	if VerifyWebhookSignature("unknown", []byte("x"), "sig", "secret") {
		t.Fatal("unknown provider validated")
	}
	if VerifyWebhookSignature(models.GatewayProviderPaystack, []byte("x"), "", "secret") {
		t.Fatal("empty signature validated")
	}
	if VerifyWebhookSignature(models.GatewayProviderPaystack, []byte("x"), "sig", "") {
		t.Fatal("empty secret validated")
	}
}

func TestSignatureHeaderName(t *testing.T) {
	cases := map[string]string{
		models.GatewayProviderPaystack:    "x-paystack-signature",
		models.GatewayProviderFlutterwave: "verif-hash",
		models.GatewayProviderMonnify:     "monnify-signature",
		"unknown":                         "",
	}
	for provider, want := range cases {
		if got := SignatureHeaderName(provider); got != want {
			t.Errorf("SignatureHeaderName(%q) = %q, want %q", provider, got, want)
		}
	}
}
