package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	digits       = "0123456789"
	alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

	placeholderPrefix = "user_"
	placeholderLength = 10
)

// GenerateNumericCode returns length digits drawn uniformly from crypto/rand.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	return randomString(digits, length)
}

// PlaceholderUsername returns a random username for accounts created without one.
func PlaceholderUsername() (string, error) {
	suffix, err := randomString(alphanumeric, placeholderLength)
	if err != nil {
		return "", err
	}
	return placeholderPrefix + suffix, nil
}

func randomString(alphabet string, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
