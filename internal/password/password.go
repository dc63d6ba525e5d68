// Package password implements the credential policy: complexity validation,
// bcrypt hashing, and verification.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
)

// DefaultCost is the bcrypt cost factor used in production.
const DefaultCost = 12

// MinLength is the minimum accepted password length.
const MinLength = 8

// allowedSymbols is the fixed set of accepted special characters.
const allowedSymbols = "!@#$%^&*()-_=+[]{};:,.?"

// placeholderHash is a valid bcrypt hash of an unused constant. Login paths
// compare against it when no account matches the email, so the response time
// of "user absent" stays statistically indistinguishable from "user present,
// wrong password".
const placeholderHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Policy validates and hashes credentials.
type Policy struct {
	cost int
}

// NewPolicy creates a policy with the given bcrypt cost. Costs below the
// bcrypt minimum fall back to DefaultCost.
func NewPolicy(cost int) *Policy {
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	return &Policy{cost: cost}
}

// Validate checks the password against every policy rule and returns all
// violations, not just the first. An empty slice means the password is
// acceptable.
func (p *Policy) Validate(password string) []string {
	var violations []string

	if len(password) < MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		case strings.ContainsRune(allowedSymbols, ch):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, "must contain at least one symbol from "+allowedSymbols)
	}

	return violations
}

// Hash computes a salted bcrypt hash of the password. The plaintext is never
// logged or returned.
func (p *Policy) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares the password against a stored bcrypt hash using bcrypt's
// own constant-time primitive. A mismatch returns (false, nil); a
// structurally invalid stored hash returns ErrMalformedHash, because silently
// treating data corruption as a wrong password would hide an integrity fault.
func (p *Policy) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", apperrors.ErrMalformedHash, err)
}

// DummyCompare burns one bcrypt verification against the placeholder hash.
// Called on login when the email does not resolve to an account.
func (p *Policy) DummyCompare(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(placeholderHash), []byte(password))
}
