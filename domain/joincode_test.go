package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := GenerateJoinCode()
		assert.Len(t, code, JoinCodeLength)
		for _, c := range code {
			assert.Contains(t, JoinCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	// 31^6 possible codes; 200 draws colliding down to a handful would
	// mean the generator is broken.
	assert.Greater(t, len(seen), 190)
}

func TestJoinCodeAlphabetExcludesConfusables(t *testing.T) {
	for _, c := range "ILO01" {
		assert.False(t, strings.ContainsRune(JoinCodeAlphabet, c))
	}
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeJoinCode("abc234"))
	assert.Equal(t, "ABC234", NormalizeJoinCode("  AbC234 "))
	assert.Equal(t, "ABC234", NormalizeJoinCode("ABC234"))
}
