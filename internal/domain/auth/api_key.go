// Package auth provides API key hashing and verification for the endpoints
// the framework protects (metrics and other operator surfaces).
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/cespare/xxhash/v2"
)

// ErrInvalidKey is returned when a presented key matches no configured hash.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a stored hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// argon2idParams defines OWASP minimum parameters for Argon2id.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKey returns the SHA-256 hash of the raw key in "sha256:<hex>" form.
// Suitable for machine-generated, high-entropy keys where a fast hash is
// acceptable; use HashKeyArgon2id for operator-chosen secrets.
func HashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return "sha256:" + hex.EncodeToString(hash[:])
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format.
// The hash includes a random salt and uses OWASP minimum parameters.
// Format: $argon2id$v=19$m=48128,t=1,p=1$<salt>$<hash>
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// DetectHashType identifies the hash algorithm used for a stored hash.
// Returns "argon2id" for PHC format, "sha256" for prefixed or bare hex,
// "unknown" for unrecognized formats.
func DetectHashType(storedHash string) string {
	if strings.HasPrefix(storedHash, "$argon2id$") {
		return "argon2id"
	}
	if strings.HasPrefix(storedHash, "sha256:") {
		return "sha256"
	}
	// Legacy bare SHA-256 hex is exactly 64 hex characters.
	if len(storedHash) == 64 && isHexString(storedHash) {
		return "sha256"
	}
	return "unknown"
}

// VerifyKey checks a raw key against a stored hash, dispatching on the hash
// format. SHA-256 comparisons are constant-time.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch DetectHashType(storedHash) {
	case "argon2id":
		return argon2id.ComparePasswordAndHash(rawKey, storedHash)
	case "sha256":
		want := strings.TrimPrefix(storedHash, "sha256:")
		got := sha256.Sum256([]byte(rawKey))
		gotHex := hex.EncodeToString(got[:])
		return subtle.ConstantTimeCompare([]byte(gotHex), []byte(strings.ToLower(want))) == 1, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownHashType, truncateForLog(storedHash))
	}
}

// KeyID returns a short, stable, non-secret fingerprint of a raw key for use
// in logs and metrics labels. xxhash is not a password hash; the fingerprint
// only needs to be stable and collision-light, never reversible protection.
func KeyID(rawKey string) string {
	return fmt.Sprintf("key-%016x", xxhash.Sum64String(rawKey))
}

// isHexString checks if a string contains only valid hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// truncateForLog shortens a stored hash so error messages never leak the
// full value.
func truncateForLog(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
