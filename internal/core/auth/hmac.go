package auth

import (
	"crypto/hmac"
	"crypto/sha256"
)

// ComputeHMAC computes HMAC-SHA256 of token under key.
func ComputeHMAC(key []byte, token string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(token))
	return h.Sum(nil)
}

// VerifyHMAC compares two digests in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}
