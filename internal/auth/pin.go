package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PinBook holds bcrypt hashes of the shared role PINs.
type PinBook struct {
	hashes map[string][]byte
}

// NewPinBook hashes every role PIN. Plain PINs are not kept.
func NewPinBook(pins map[string]string) (*PinBook, error) {
	hashes := make(map[string][]byte, len(pins))
	for role, pin := range pins {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash pin for %s: %w", role, err)
		}
		hashes[role] = hash
	}
	return &PinBook{hashes: hashes}, nil
}

// Verify reports whether pin unlocks role.
func (b *PinBook) Verify(role, pin string) bool {
	hash, ok := b.hashes[role]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pin)) == nil
}

// Has reports whether role has a PIN configured.
func (b *PinBook) Has(role string) bool {
	_, ok := b.hashes[role]
	return ok
}
