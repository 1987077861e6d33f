package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const minSecretLen = 32

// SecretBytes turns s into a signing key of at least 32 bytes.
func SecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}

// newNonce returns 16 random bytes, hex encoded.
func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// sign returns "<base64 nonce>.<hex hmac>".
func sign(nonce string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(nonce))
	return base64.URLEncoding.EncodeToString([]byte(nonce)) + "." + hex.EncodeToString(mac.Sum(nil))
}

// verify checks the signature of token and returns its nonce.
func verify(token string, secret []byte) (string, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", errors.New("invalid token format")
	}
	payload, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", errors.New("invalid signature")
	}
	return string(payload), nil
}
