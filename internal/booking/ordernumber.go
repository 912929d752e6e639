package booking

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// randomToken generates a random hexadecimal string of n bytes (2n
// characters).  crypto/rand supplies the bytes, so tokens are safe to
// hand to clients for correlation.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewOrderNumber builds a human-readable order number from the
// creation date and a random suffix, e.g. "R20260829-4F2A1C".  The
// suffix is random rather than sequential so order volume cannot be
// inferred from consecutive numbers.
func NewOrderNumber(at time.Time) (string, error) {
	suffix, err := randomToken(3)
	if err != nil {
		return "", err
	}
	return "R" + at.UTC().Format("20060102") + "-" + strings.ToUpper(suffix), nil
}
