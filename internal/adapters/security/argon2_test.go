package security

import (
	"math/rand"
	"testing"
)

func TestArgon2HashAndVerify(t *testing.T) {
	t.Parallel()

	hasher := NewArgon2Hasher(1, 16*1024, 2)
	digest, salt, err := hasher.Hash("CorrectHorse7")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if digest == "" || salt == "" {
		t.Fatalf("expected non-empty digest and salt")
	}

	if !hasher.Verify("CorrectHorse7", digest, salt) {
		t.Fatalf("expected verify to succeed for correct password")
	}
	if hasher.Verify("WrongHorse7", digest, salt) {
		t.Fatalf("expected verify to fail for wrong password")
	}
}

func TestArgon2HashProducesUniqueSalts(t *testing.T) {
	t.Parallel()

	hasher := NewArgon2Hasher(1, 16*1024, 2)
	digest1, salt1, err := hasher.Hash("CorrectHorse7")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	digest2, salt2, err := hasher.Hash("CorrectHorse7")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if salt1 == salt2 {
		t.Fatalf("expected distinct salts for repeated hashes")
	}
	if digest1 == digest2 {
		t.Fatalf("expected distinct digests for repeated hashes")
	}
}

func TestArgon2RandomizedRoundTrip(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("randomized hashing loop")
	}

	// Reduced parameters keep the loop fast without changing the property
	// under test: every password verifies against its own digest and never
	// against a different one.
	hasher := NewArgon2Hasher(1, 1024, 1)
	rng := rand.New(rand.NewSource(42))
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

	randomPassword := func() string {
		n := 8 + rng.Intn(57)
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = chars[rng.Intn(len(chars))]
		}
		return string(buf)
	}

	for i := 0; i < 1000; i++ {
		password := randomPassword()
		digest, salt, err := hasher.Hash(password)
		if err != nil {
			t.Fatalf("hash failed on sample %d: %v", i, err)
		}
		if !hasher.Verify(password, digest, salt) {
			t.Fatalf("verify failed for its own password on sample %d", i)
		}

		wrong := randomPassword()
		if wrong == password {
			continue
		}
		if hasher.Verify(wrong, digest, salt) {
			t.Fatalf("false positive on sample %d: %q accepted for %q", i, wrong, password)
		}
	}
}

func TestArgon2VerifyMalformedInputs(t *testing.T) {
	t.Parallel()

	hasher := NewArgon2Hasher(1, 16*1024, 2)
	if hasher.Verify("CorrectHorse7", "not-base64!!!", "also-bad!!!") {
		t.Fatalf("expected verify to fail on malformed digest and salt")
	}
	if hasher.Verify("CorrectHorse7", "", "") {
		t.Fatalf("expected verify to fail on empty digest and salt")
	}
}
