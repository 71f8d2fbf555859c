package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const saltBytes = 32

// Argon2Hasher implements salted password hashing with Argon2id.
// A memory-hard KDF is used instead of a plain SHA-256 digest so offline
// brute force against a leaked table stays expensive. Parameters are
// configurable per environment.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}

// NewArgon2Hasher creates a hasher with sane fallbacks for zero parameters.
func NewArgon2Hasher(time, memoryKiB uint32, threads uint8) *Argon2Hasher {
	if time == 0 {
		time = 1
	}
	if memoryKiB == 0 {
		memoryKiB = 64 * 1024
	}
	if threads == 0 {
		threads = 4
	}
	return &Argon2Hasher{
		time:    time,
		memory:  memoryKiB,
		threads: threads,
		keyLen:  32,
	}
}

// Hash derives a digest from the password and a fresh random salt.
// Both are returned base64-encoded for storage.
func (h *Argon2Hasher) Hash(password string) (string, string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt := base64.StdEncoding.EncodeToString(raw)
	digest := h.derive(password, raw)
	return base64.StdEncoding.EncodeToString(digest), salt, nil
}

// Verify recomputes the digest and compares in constant time.
// Malformed or empty salt/digest is a verification failure, not an error.
func (h *Argon2Hasher) Verify(password, digest, salt string) bool {
	if digest == "" || salt == "" {
		return false
	}
	saltRaw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil || len(saltRaw) == 0 {
		return false
	}
	digestRaw, err := base64.StdEncoding.DecodeString(digest)
	if err != nil || len(digestRaw) == 0 {
		return false
	}
	computed := h.derive(password, saltRaw)
	return subtle.ConstantTimeCompare(computed, digestRaw) == 1
}

func (h *Argon2Hasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)
}
