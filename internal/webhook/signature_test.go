package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValidDigest(t *testing.T) {
	secret := []byte("shh")
	body := []byte(`{"id":"evt_1"}`)
	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
}

func TestVerifySignatureIsCaseInsensitive(t *testing.T) {
	secret := []byte("shh")
	body := []byte(`{"id":"evt_1"}`)
	assert.True(t, VerifySignature(secret, body, strings.ToUpper(sign(secret, body))))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	assert.False(t, VerifySignature([]byte("shh"), body, sign([]byte("other"), body)))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := []byte("shh")
	sig := sign(secret, []byte(`{"id":"evt_1"}`))
	assert.False(t, VerifySignature(secret, []byte(`{"id":"evt_2"}`), sig))
}

func TestVerifySignatureRejectsEmptyHeader(t *testing.T) {
	assert.False(t, VerifySignature([]byte("shh"), []byte("body"), ""))
}
