package tables

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"mesa/internal/domain"
)

// CodeAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of symbols in a table code.
const CodeLength = 5

// MaxCodeLength bounds caller-supplied codes.
const MaxCodeLength = 16

// NormalizeCode upper-cases a caller-supplied code and checks its shape.
// Caller codes may use any letter or digit; only generated codes are limited
// to CodeAlphabet.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > MaxCodeLength {
		return "", fmt.Errorf("%w: table code must be 1 to %d characters", domain.ErrMalformed, MaxCodeLength)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: table code contains %q", domain.ErrMalformed, r)
		}
	}
	return code, nil
}

// generateCode draws CodeLength symbols uniformly. The alphabet size divides
// 256, so masking a random byte is unbiased.
func generateCode(random io.Reader) (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf), nil
}

var defaultRandom io.Reader = rand.Reader
