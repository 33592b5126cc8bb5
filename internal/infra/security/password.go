package security

import (
	"golang.org/x/crypto/bcrypt"

	"spacebook/internal/pkg/errs"
)

// bcrypt only reads the first 72 bytes; longer passwords are refused instead
// of being silently truncated.
const maxPasswordBytes = 72

var ErrPasswordTooLong = errs.Field("password", "must be at most 72 bytes")

// BcryptHasher implements the auth service's PasswordHasher. A cost outside
// bcrypt's range falls back to bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errs.Wrap(err, "security: hash password")
	}
	return string(out), nil
}

// Compare returns nil on a match. A mismatch keeps
// bcrypt.ErrMismatchedHashAndPassword in the chain.
func (h BcryptHasher) Compare(hash, password string) error {
	if hash == "" {
		return bcrypt.ErrHashTooShort
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errs.Wrap(err, "security: compare password")
	}
	return nil
}
