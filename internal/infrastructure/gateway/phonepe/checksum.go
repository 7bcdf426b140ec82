package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// checksumSeparator joins the digest and the salt index in the X-VERIFY
// header. Both the separator and the concatenation order below are part of
// the wire contract with the gateway and must not change.
const checksumSeparator = "###"

// Sign computes the X-VERIFY value for an outbound request:
// SHA256(payloadBase64 + endpointPath + saltKey) as lowercase hex, followed
// by "###" and the salt index.
func Sign(payloadBase64, endpointPath, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(payloadBase64 + endpointPath + saltKey))
	return hex.EncodeToString(sum[:]) + checksumSeparator + saltIndex
}

// Verify checks an inbound callback signature against the raw callback body.
// The claimed salt index after the separator is parsed but not cross-checked
// against the configured index; only the digest is compared. A verification
// failure is data, not an exceptional condition.
func Verify(rawCallbackBody, headerSignature, saltKey string) bool {
	parts := strings.SplitN(headerSignature, checksumSeparator, 2)
	if len(parts) != 2 || parts[0] == "" {
		return false
	}

	sum := sha256.Sum256([]byte(rawCallbackBody + saltKey))
	expected := hex.EncodeToString(sum[:])

	return subtle.ConstantTimeCompare([]byte(expected), []byte(parts[0])) == 1
}
