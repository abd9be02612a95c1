package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// defaultPBKDF2Iterations applies to newly created accounts. Existing
	// rows carry their own iteration count, so raising this later does not
	// break old credentials.
	defaultPBKDF2Iterations = 10000

	pbkdf2KeyLen  = 512
	pbkdf2SaltLen = 128
)

// PasswordHashInfo is everything needed to reproduce a password hash:
// the hex-encoded PBKDF2 output, the per-user random salt, and the
// iteration count the hash was computed with.
type PasswordHashInfo struct {
	Hash       string
	Salt       string
	Iterations int
}

func hashPassword(plaintext, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key)
}

// CreatePasswordHash derives a fresh PasswordHashInfo for a new account.
// The salt is generated once here and never changes for the account's
// lifetime.
func CreatePasswordHash(plaintext string) (PasswordHashInfo, error) {
	raw := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(raw); err != nil {
		return PasswordHashInfo{}, fmt.Errorf("generate salt: %w", err)
	}
	salt := base64.StdEncoding.EncodeToString(raw)
	return PasswordHashInfo{
		Hash:       hashPassword(plaintext, salt, defaultPBKDF2Iterations),
		Salt:       salt,
		Iterations: defaultPBKDF2Iterations,
	}, nil
}

// PasswordMatchesHash recomputes the hash with the stored salt and
// iteration count and compares in constant time.
func PasswordMatchesHash(plaintext string, info PasswordHashInfo) bool {
	got := hashPassword(plaintext, info.Salt, info.Iterations)
	return hmac.Equal([]byte(got), []byte(info.Hash))
}
