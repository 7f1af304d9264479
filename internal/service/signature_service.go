package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACDigestService implements ports.DigestService using HMAC-SHA256.
// Email verification tokens are stored only as their digest.
type HMACDigestService struct {
	key []byte
}

// NewHMACDigestService creates a digest service keyed by secret.
func NewHMACDigestService(secret string) *HMACDigestService {
	return &HMACDigestService{key: []byte(secret)}
}

// Digest returns lowercase hex HMAC-SHA256(key, value).
func (s *HMACDigestService) Digest(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares value against digest in constant time.
func (s *HMACDigestService) Equal(value string, digest string) bool {
	return hmac.Equal([]byte(s.Digest(value)), []byte(digest))
}
