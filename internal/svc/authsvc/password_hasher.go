package authsvc

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Bars-377/web-chat/internal/domain"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher hashes plaintext passwords and checks them against stored hashes.
type PasswordHasher interface {
	// Hash returns an opaque hash of password.
	Hash(password string) ([]byte, error)

	// Compare reports whether password matches hash.
	Compare(hash []byte, password string) (bool, error)
}

// BcryptPasswordHasher implements PasswordHasher with bcrypt.
type BcryptPasswordHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptPasswordHasher{}

// Hash implements PasswordHasher.Hash.
func (h BcryptPasswordHasher) Hash(password string) ([]byte, error) {
	if len(password) > MaxPasswordBytes {
		return nil, &domain.ValidationError{Field: "password", Err: bcrypt.ErrPasswordTooLong}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return nil, fmt.Errorf("generate hash: %w", err)
	}

	return hash, nil
}

// Compare implements PasswordHasher.Compare.
func (h BcryptPasswordHasher) Compare(hash []byte, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare hash: %w", err)
	}
}
