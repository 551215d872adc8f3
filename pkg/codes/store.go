package codes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// DefaultTTL is how long a stored code stays retrievable
const DefaultTTL = 5 * time.Minute

// CodeLength is the number of digits in a generated code
const CodeLength = 6

// Store holds at most one live code per key.
// Storing a code for a key replaces the previous one and restarts its window.
type Store interface {
	Store(ctx context.Context, key, code string) error
	// Get returns the live code for key; ok is false when absent or expired
	Get(ctx context.Context, key string) (code string, ok bool, err error)
	Remove(ctx context.Context, key string) error
}

// Generate returns a random numeric code of CodeLength digits
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
