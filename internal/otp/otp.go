// Package otp generates the numeric one-time passcodes used for
// account verification.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	min = 100000
	max = 999999
)

// Generate returns a six-digit code in [100000, 999999] drawn from a
// cryptographically strong source.
func Generate() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, fmt.Errorf("generate otp: %w", err)
	}
	return min + int(n.Int64()), nil
}
