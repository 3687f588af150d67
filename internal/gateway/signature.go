package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentVerifier checks the client-side proof of payment:
// HMAC-SHA256(keySecret, gatewayOrderID + "|" + paymentID), hex encoded.
type PaymentVerifier struct {
	secret []byte
}

func NewPaymentVerifier(keySecret string) *PaymentVerifier {
	return &PaymentVerifier{secret: []byte(keySecret)}
}

func (v *PaymentVerifier) Sign(gatewayOrderID, paymentID string) string {
	return hmacSHA256Hex(v.secret, []byte(gatewayOrderID+"|"+paymentID))
}

// Verify never fails; malformed input is simply not authentic.
func (v *PaymentVerifier) Verify(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return equalHex(v.Sign(gatewayOrderID, paymentID), signature)
}

// WebhookVerifier authenticates callbacks signed over the raw request body
// with the webhook-specific secret.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(webhookSecret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(webhookSecret)}
}

func (v *WebhookVerifier) Sign(rawBody []byte) string {
	return hmacSHA256Hex(v.secret, rawBody)
}

func (v *WebhookVerifier) Verify(rawBody []byte, signature string) bool {
	if len(v.secret) == 0 || signature == "" {
		return false
	}
	return equalHex(v.Sign(rawBody), signature)
}

func hmacSHA256Hex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// equalHex is a constant-time comparison.
func equalHex(expected, provided string) bool {
	return hmac.Equal([]byte(expected), []byte(provided))
}
