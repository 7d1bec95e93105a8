package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	secretBytes = 32
	codeDigits  = 6
)

var codeSpace = big.NewInt(1_000_000)

// Generator produces token secrets and numeric codes
type Generator interface {
	NewSecret() (string, error)
	NewCode() (string, error)
}

// RandomGenerator draws secrets and codes from crypto/rand
type RandomGenerator struct{}

// NewSecret returns 256 bits of randomness, base64url encoded without padding
func (RandomGenerator) NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewCode returns a zero padded 6 digit code, uniform over [0, 999999]
func (RandomGenerator) NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// HashSecret returns the digest under which a secret or code is stored
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
