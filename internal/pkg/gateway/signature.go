package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/CampusConnectNG/CampusConnect/app/models"
)

// VerifyWebhookSignature checks a provider webhook signature against the
// configured secret. An unrecognized provider never validates.
func VerifyWebhookSignature(provider string, payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	sec := strings.TrimSpace(secret)
	if sig == "" || sec == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case models.GatewayProviderPaystack:
		// x-paystack-signature: HMAC-SHA512 hex of the raw body
		return verifyHMACSHA512(payload, sig, sec)
	case models.GatewayProviderMonnify:
		// monnify-signature: HMAC-SHA512 hex of the raw body
		return verifyHMACSHA512(payload, sig, sec)
	case models.GatewayProviderFlutterwave:
		// verif-hash: plain shared-secret comparison
		return subtle.ConstantTimeCompare([]byte(sig), []byte(sec)) == 1
	}
	return false
}

func verifyHMACSHA512(payload []byte, signatureHex, secret string) bool {
	expected, err := hex.DecodeString(strings.ToLower(signatureHex))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// SignatureHeaderName returns the HTTP header each provider carries its
// webhook signature in.
func SignatureHeaderName(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case models.GatewayProviderPaystack:
		return "x-paystack-signature"
	case models.GatewayProviderFlutterwave:
		return "verif-hash"
	case models.GatewayProviderMonnify:
		return "monnify-signature"
	}
	return ""
}
