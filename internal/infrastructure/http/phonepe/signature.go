package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// sign builds the X-VERIFY header value: sha256 of the input concatenated
// with the salt key, suffixed with the salt key index.
func sign(input, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(input + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// VerifyCallback checks the X-VERIFY header of a server-to-server callback
// against the base64 payload it covers. Constant-time compare.
func VerifyCallback(base64Payload, header, saltKey, saltIndex string) bool {
	expected := sign(base64Payload, saltKey, saltIndex)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}
