package pin

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// PinLength is the number of decimal digits in a generated PIN.
const PinLength = 5

// PinGenerator produces a plaintext PIN and its one-way hash.
type PinGenerator interface {
	Generate() (plaintext string, hashed string, err error)
}

// RandomPinGenerator draws a fixed-length, zero-padded decimal PIN from
// crypto/rand and hashes it with SHA-256. The hash is deliberately unsalted:
// a record is single-use, attempt-limited and expires within a minute, so a
// per-user salt would add nothing over the 100000-value keyspace already
// protected by the attempt ceiling.
type RandomPinGenerator struct{}

func NewRandomPinGenerator() RandomPinGenerator {
	return RandomPinGenerator{}
}

var pinSpace = big.NewInt(100000) // 10^PinLength

// Generate implements PinGenerator.
func (RandomPinGenerator) Generate() (string, string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate pin: %w", err)
	}
	plaintext := fmt.Sprintf("%05d", n)
	return plaintext, HashPin(plaintext), nil
}

// HashPin computes the at-rest digest of a plaintext PIN.
func HashPin(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// hashEquals compares a candidate PIN against a stored hash in constant time.
func hashEquals(plaintext, hashed string) bool {
	candidate := HashPin(plaintext)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hashed)) == 1
}
