package accounts

import "golang.org/x/crypto/bcrypt"

// Hasher abstracts password hashing so the algorithm can be swapped
// without touching call sites.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements Hasher with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash produces an irreversible digest of plaintext.
func (BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
func (BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

var _ Hasher = BcryptHasher{}
