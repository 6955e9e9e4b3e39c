package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature recomputes HMAC-SHA256 of body under secret and
// compares it to the hex digest in header using a constant-time
// comparison, both sides normalised to lower-case first (spec.md §4.2:
// "compares the hex digest to the provided signature header using
// constant-time comparison, both sides normalised to the same case").
func VerifySignature(secret []byte, body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	got := strings.ToLower(strings.TrimSpace(header))
	expected = strings.ToLower(expected)

	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
