package secrets

import (
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
)

// testPassword is shared by tests that do not care about the password value.
var testPassword = []byte("correct horse battery staple")

var (
	identityOnce   sync.Once
	cachedIdentity *Identity
	cachedErr      error
)

// sharedIdentity returns an identity created once per test binary with
// testPassword. RSA key generation is slow enough to be worth caching.
func sharedIdentity(t *testing.T) *Identity {
	t.Helper()
	identityOnce.Do(func() {
		cachedIdentity, cachedErr = CreateIdentity(testPassword, WithKDF(KDFPBKDF2SHA256, MinPBKDF2Iterations))
	})
	if cachedErr != nil {
		t.Fatalf("Failed to create identity: %v", cachedErr)
	}
	return cachedIdentity
}

// newIdentity creates a fresh identity with the minimum iteration count.
func newIdentity(t *testing.T, password string) (*Identity, *rsa.PrivateKey) {
	t.Helper()
	id, err := CreateIdentity([]byte(password), WithKDF(KDFPBKDF2SHA256, MinPBKDF2Iterations))
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	priv, err := OpenIdentity(id, []byte(password))
	if err != nil {
		t.Fatalf("Failed to open identity: %v", err)
	}
	return id, priv
}

// failingReader simulates an unavailable random source.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy pool exhausted")
}

// withFailingRandomness swaps the package random source for the duration of the test.
func withFailingRandomness(t *testing.T) {
	t.Helper()
	original := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = original })
}
