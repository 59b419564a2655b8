package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the bcrypt work factor used for new password
// hashes. Cost 12 keeps hashing slow enough to resist offline brute
// force on current hardware.
const DefaultBcryptCost = 12

// HashPassword derives a salted bcrypt hash from the plaintext password
func HashPassword(plaintext string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext password matches the
// stored hash. A malformed hash is reported as a mismatch, never an
// error.
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
