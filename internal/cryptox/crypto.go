// Package cryptox holds the password primitives used by sign-up and sign-in.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a freshly generated password salt.
const SaltSize = 32

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier is the value stored remotely to check a master key without
// keeping the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifierMatches compares verifiers in constant time.
func VerifierMatches(stored, candidate []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, candidate) == 1
}

// EmailKey is the document id of an identity. Emails are compared without
// case or surrounding spaces.
func EmailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
