package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const claimCodeLen = 16

// ClaimCode is the code an operator hands to the owner of an account that
// exists without members, typically one migrated from the legacy layout.
// It is derived from secret so that no state has to be stored.
func ClaimCode(secret, userID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.TrimSpace(userID)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))[:claimCodeLen])
}

func (s *Service) claimAllowed(userID, code string) bool {
	if s.claimSecret == "" {
		return false
	}
	want := ClaimCode(s.claimSecret, userID)
	got := strings.ToUpper(strings.TrimSpace(code))
	return hmac.Equal([]byte(want), []byte(got))
}
