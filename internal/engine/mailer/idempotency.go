package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// IdempotencyKey derives a stable key for one send request, so a client
// retry of the same payload is delivered once by the provider.
func IdempotencyKey(secret string, payload []byte) string {
	return "invostock-" + Sign(secret, payload)[:32]
}
