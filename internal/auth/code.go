package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for verification codes.
//
// A 6-digit code has only a million values, so hashing cannot make it
// uncrackable. It keeps the plain code out of the store, and cost 10 keeps
// a verify call well under 100ms.
const DefaultCost = 10

// MaxCodeLength bounds GenerateCode. bcrypt stops reading at 72 bytes and a
// one-time code never needs to get near that.
const MaxCodeLength = 12

// ErrCodeMismatch is returned by CodeHasher.Verify for a wrong code.
var ErrCodeMismatch = errors.New("auth: verification code does not match")

// CodeHasher hashes and checks one-time verification codes with bcrypt.
type CodeHasher struct {
	cost int
}

// NewCodeHasher hashes at cost, or DefaultCost when cost is 0. Anything
// outside bcrypt.MinCost..bcrypt.MaxCost is rejected.
func NewCodeHasher(cost int) (*CodeHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d outside %d..%d", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &CodeHasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of code, salt and cost included:
//
//	$2a$10$<22-char salt><31-char hash>
func (h *CodeHasher) Hash(code string) (string, error) {
	if len(code) > 72 {
		return "", fmt.Errorf("auth: code must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing code: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when code matches hash and ErrCodeMismatch when it does
// not. Any other error means the stored hash itself is unusable.
func (h *CodeHasher) Verify(hash, code string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("auth: comparing code hash: %w", err)
	}
	return nil
}

// GenerateCode returns length random decimal digits. Leading zeros are kept.
func GenerateCode(length int) (string, error) {
	if length < 1 || length > MaxCodeLength {
		return "", fmt.Errorf("auth: code length must be between 1 and %d, got %d", MaxCodeLength, length)
	}

	ten := big.NewInt(10)
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("auth: reading random digit: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
