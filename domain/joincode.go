package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Join codes are short handles students type by hand, so the alphabet drops
// the visually confusable characters (I, L, O, 0, 1).
const (
	JoinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	JoinCodeLength   = 6
)

// GenerateJoinCode draws a random fixed-length code from the alphabet.
// Uniqueness is not guaranteed here; the cohort repository enforces it with
// a conditional write and the caller retries on conflict.
func GenerateJoinCode() string {
	var sb strings.Builder
	sb.Grow(JoinCodeLength)
	max := big.NewInt(int64(len(JoinCodeAlphabet)))
	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to the first character rather than panic mid-request.
			sb.WriteByte(JoinCodeAlphabet[0])
			continue
		}
		sb.WriteByte(JoinCodeAlphabet[n.Int64()])
	}
	return sb.String()
}

// NormalizeJoinCode upper-cases and trims a user-entered code. The same
// normalization is applied on write and on lookup so case never breaks the
// uniqueness check.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
