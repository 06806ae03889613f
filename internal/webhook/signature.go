package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrInvalidSignature rejects a request whose HMAC does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrVerifyToken rejects a handshake with the wrong verify token.
	ErrVerifyToken = errors.New("verify token mismatch")
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against the
// HMAC-SHA256 of the raw body. Comparison is constant-time.
func VerifySignature(appSecret string, body []byte, header string) error {
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}
	claimed, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(claimed, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
