// Package pickup generates pickup codes and their scannable artifacts.
package pickup

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of characters in a pickup code.
const CodeLength = 10

// Alphabet lists the characters a pickup code may contain.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// NewCode returns a random pickup code of CodeLength uppercase alphanumeric characters.
func NewCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)

	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate pickup code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed, normalized pickup code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
