package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword is returned when a password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// defaultCost is the bcrypt work factor used outside tests. Each hash takes
// roughly a quarter second at 12, which is fine for a login and painful for
// anyone guessing offline.
const defaultCost = 12

// maxPasswordBytes is where bcrypt stops reading input. Longer passwords are
// rejected rather than silently truncated.
const maxPasswordBytes = 72

// PasswordService hashes and checks passwords with bcrypt.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version
//
// The salt is embedded, so the string is stored as-is.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with a custom cost.
// Tests in other packages pass bcrypt.MinCost so signups take milliseconds.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plaintext against a bcrypt hash. It returns
// ErrInvalidPassword on mismatch.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// IsHash reports whether stored looks like a bcrypt hash rather than a
// plaintext password left over in an old data file.
func IsHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// Check verifies plaintext against a stored password that may be either a
// bcrypt hash or legacy plaintext. needsUpgrade is true when the match was
// against plaintext and the caller should replace it with a hash.
func (p *PasswordService) Check(stored, plaintext string) (needsUpgrade bool, err error) {
	if stored == "" {
		return false, ErrInvalidPassword
	}
	if IsHash(stored) {
		return false, p.Verify(stored, plaintext)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(plaintext)) != 1 {
		return false, ErrInvalidPassword
	}
	return true, nil
}
