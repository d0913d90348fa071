// Package signature implements the HMAC-SHA256 signing scheme used for
// both the signaling/media handshake signature and webhook validation.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the handshake signature: HMAC-SHA256 over
// "<clientId>,<meetingUuid>,<streamId>" keyed by the OAuth client
// secret, hex-encoded. Used identically for signaling and media
// handshakes.
func Sign(clientID, meetingUUID, streamID, secret string) string {
	msg := fmt.Sprintf("%s,%s,%s", clientID, meetingUUID, streamID)
	return hexHMAC(secret, msg)
}

// hexHMAC returns the hex-encoded HMAC-SHA256 of msg keyed by secret.
func hexHMAC(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateURLResponse computes the response to an
// endpoint.url_validation webhook: HMAC-SHA256 over the received
// plainToken using the vendor-issued secret token, hex-encoded.
func ValidateURLResponse(plainToken, secretToken string) (encryptedToken string) {
	return hexHMAC(secretToken, plainToken)
}

// VerifyWebhookSignature validates a non-validation webhook's
// signature header. The vendor computes HMAC-SHA256 over
// "v0:<timestamp>:<rawBody>" keyed by the secret token and sends it as
// "v0=<hex>"; this recomputes that value and compares it to header
// using a constant-time comparison.
func VerifyWebhookSignature(timestamp, rawBody, secretToken, header string) bool {
	expected := "v0=" + hexHMAC(secretToken, fmt.Sprintf("v0:%s:%s", timestamp, rawBody))
	return hmac.Equal([]byte(expected), []byte(header))
}
