package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EmailHasher produces the keyed hash under which email addresses are stored.
// The hash is a lookup key only; the plaintext address is never persisted.
type EmailHasher struct {
	secret []byte
}

func NewEmailHasher(secret string) *EmailHasher {
	return &EmailHasher{secret: []byte(secret)}
}

func (h *EmailHasher) Hash(email string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(strings.TrimSpace(email)))
	return hex.EncodeToString(mac.Sum(nil))
}
