// Package auth authenticates credentials and issues bearer tokens.
package auth

import "golang.org/x/crypto/bcrypt"

// Verifier wraps the one-way adaptive password hash. Verification is a
// constant-time compare inside bcrypt.
type Verifier struct {
	cost int
}

// NewVerifier constructs a Verifier. A cost of zero selects the bcrypt
// default.
func NewVerifier(cost int) *Verifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Verifier{cost: cost}
}

// Hash produces an opaque salted hash of plain.
func (v *Verifier) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash.
func (v *Verifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
