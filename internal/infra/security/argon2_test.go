package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestHashAndVerifySuccess(t *testing.T) {
	hasher := testHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if encoded == password {
		t.Fatal("hash must never equal the plaintext")
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("unexpected parameter segment: %s", parts[2])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected different encodings for repeated hashes")
	}
}

func TestVerifyWrongPasswordReturnsFalseWithoutError(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyHashFromOtherParameters(t *testing.T) {
	oldHasher := testHasher(t)
	encoded, err := oldHasher.Hash("retuned-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	newHasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	ok, err := newHasher.Verify("retuned-password", encoded)
	if err != nil || !ok {
		t.Fatalf("expected verification across parameter changes, ok=%v err=%v", ok, err)
	}
}

func TestVerifyLegacyBcryptHash(t *testing.T) {
	hasher := testHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword returned error: %v", err)
	}

	ok, err := hasher.Verify("imported-password", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt hash to verify, ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("wrong-password", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch to return false, ok=%v err=%v", ok, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := testHasher(t)

	if _, err := hasher.Verify("password", "argon2id$v=19$broken"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	if _, err := NewArgon2Hasher(Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected error for memory below minimum")
	}
}
