// internal/app/system/authutil/authutil.go

// Package authutil hashes and verifies local-user passwords.
//
// The registry stores and compares password hashes as opaque strings, so
// the hash must be deterministic for a given (organization, username,
// password) triple. We use PBKDF2-SHA256 with a salt derived from the
// organization and username: identical passwords still hash differently
// across users, and the service layer can recompute the exact stored string
// for verification and for the update-password old/new comparison.
package authutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 64_000
	keyLen     = 32
)

// HashPassword derives the stored hash for a password, scoped to one user
// of one organization.
func HashPassword(organization, username, password string) string {
	salt := sha256.Sum256([]byte(organization + "\x00" + username))
	key := pbkdf2.Key([]byte(password), salt[:], iterations, keyLen, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether password hashes to the stored value. The
// comparison is constant-time.
func VerifyPassword(stored, organization, username, password string) bool {
	computed := HashPassword(organization, username, password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}
