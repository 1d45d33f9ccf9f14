package secrets

import (
	"bytes"
	"crypto/x509"
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func TestCreateIdentity_RoundTrip(t *testing.T) {
	id := sharedIdentity(t)

	privateKey, err := OpenIdentity(id, testPassword)
	if err != nil {
		t.Fatalf("Failed to open identity: %v", err)
	}
	if privateKey.N.BitLen() != RSAKeyBits {
		t.Errorf("Expected %d-bit modulus, got %d", RSAKeyBits, privateKey.N.BitLen())
	}
	if privateKey.E != 65537 {
		t.Errorf("Expected public exponent 65537, got %d", privateKey.E)
	}

	publicKey, err := id.ParsePublicKey()
	if err != nil {
		t.Fatalf("Failed to parse public key: %v", err)
	}
	if !publicKey.Equal(&privateKey.PublicKey) {
		t.Fatal("Recovered private key does not match the stored public key")
	}

	// The recovered key must unwrap content keys wrapped for the public key.
	contentKey, err := NewContentKey()
	if err != nil {
		t.Fatalf("Failed to create content key: %v", err)
	}
	wrapped, err := WrapContentKey(contentKey, publicKey)
	if err != nil {
		t.Fatalf("Failed to wrap content key: %v", err)
	}
	unwrapped, err := UnwrapContentKey(wrapped, privateKey)
	if err != nil {
		t.Fatalf("Failed to unwrap content key: %v", err)
	}
	if !bytes.Equal(unwrapped, contentKey) {
		t.Fatal("Unwrapped content key differs from the original")
	}
}

func TestCreateIdentity_StoresPerIdentitySalt(t *testing.T) {
	id := sharedIdentity(t)
	if id.KDF.Algorithm != KDFPBKDF2SHA256 {
		t.Errorf("Expected %s, got %s", KDFPBKDF2SHA256, id.KDF.Algorithm)
	}
	if id.KDF.Iterations < MinPBKDF2Iterations {
		t.Errorf("Expected at least %d iterations, got %d", MinPBKDF2Iterations, id.KDF.Iterations)
	}

	salt, err := DecodeBase64(id.KDF.Salt)
	if err != nil {
		t.Fatalf("Failed to decode salt: %v", err)
	}
	if len(salt) != SaltSize {
		t.Errorf("Expected %d-byte salt, got %d", SaltSize, len(salt))
	}

	other, _ := newIdentity(t, string(testPassword))
	if other.KDF.Salt == id.KDF.Salt {
		t.Fatal("Two identities should never share a salt")
	}
}

func TestCreateIdentity_WrappedKeyLayout(t *testing.T) {
	id := sharedIdentity(t)

	env, err := DecodeEnvelope(id.WrappedPrivateKey)
	if err != nil {
		t.Fatalf("Failed to decode wrapped key: %v", err)
	}
	if len(env.Nonce) != NonceSize {
		t.Errorf("Expected %d-byte nonce, got %d", NonceSize, len(env.Nonce))
	}

	privateKey, err := OpenIdentity(id, testPassword)
	if err != nil {
		t.Fatalf("Failed to open identity: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		t.Fatalf("Failed to marshal private key: %v", err)
	}
	if len(env.Ciphertext) != len(der)+TagSize {
		t.Errorf("Expected ciphertext of %d bytes, got %d", len(der)+TagSize, len(env.Ciphertext))
	}
	if bytes.Contains(env.Ciphertext, der[len(der)-64:]) {
		t.Error("Wrapped key contains private key material in the clear")
	}
}

func TestCreateIdentity_EmptyPassword(t *testing.T) {
	_, err := CreateIdentity(nil)
	if !errors.Is(err, kerrors.ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}
}

func TestOpenIdentity_WrongPassword(t *testing.T) {
	id := sharedIdentity(t)

	for _, password := range []string{"Correct horse battery staple", "x", strings.Repeat("a", 256)} {
		_, err := OpenIdentity(id, []byte(password))
		if !errors.Is(err, kerrors.ErrWrongPassword) {
			t.Errorf("password %q: expected ErrWrongPassword, got %v", password, err)
		}
	}
}

func TestOpenIdentity_TamperedEnvelope(t *testing.T) {
	id := sharedIdentity(t)

	raw, err := DecodeBase64(id.WrappedPrivateKey)
	if err != nil {
		t.Fatalf("Failed to decode wrapped key: %v", err)
	}

	positions := []int{0, NonceSize - 1, NonceSize, len(raw) / 2, len(raw) - 1}
	for _, pos := range positions {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[pos] ^= 0x01

		copyID := *id
		copyID.WrappedPrivateKey = EncodeBase64(tampered)

		_, err := OpenIdentity(&copyID, testPassword)
		if !errors.Is(err, kerrors.ErrWrongPassword) {
			t.Errorf("byte %d: expected ErrWrongPassword, got %v", pos, err)
		}
		if err != nil && err.Error() != kerrors.ErrWrongPassword.Error() {
			t.Errorf("byte %d: error message leaks detail: %q", pos, err.Error())
		}
	}
}

func TestOpenIdentity_TruncatedEnvelope(t *testing.T) {
	id := sharedIdentity(t)

	copyID := *id
	copyID.WrappedPrivateKey = EncodeBase64([]byte("short"))

	if _, err := OpenIdentity(&copyID, testPassword); !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
}

func TestOpenIdentity_CorruptedArgon2Params(t *testing.T) {
	id := sharedIdentity(t)

	copyID := *id
	copyID.KDF = KDFParams{
		Algorithm:  KDFArgon2id,
		Iterations: 3,
		Memory:     64 * 1024,
		Threads:    0,
		Salt:       id.KDF.Salt,
	}

	if _, err := OpenIdentity(&copyID, testPassword); !errors.Is(err, kerrors.ErrUnsupportedKDF) {
		t.Errorf("Expected ErrUnsupportedKDF, got %v", err)
	}
}

func TestOpenIdentity_NilIdentity(t *testing.T) {
	if _, err := OpenIdentity(nil, testPassword); !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword from OpenIdentity, got %v", err)
	}
	if _, err := RewrapIdentity(nil, testPassword, []byte("new-password")); !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword from RewrapIdentity, got %v", err)
	}
}

func TestRewrapIdentity(t *testing.T) {
	id, original := newIdentity(t, "old-password")

	rewrapped, err := RewrapIdentity(id, []byte("old-password"), []byte("new-password"))
	if err != nil {
		t.Fatalf("Failed to rewrap identity: %v", err)
	}

	if rewrapped.PublicKey != id.PublicKey {
		t.Error("Rewrapping must not change the public key")
	}
	if rewrapped.KDF.Salt == id.KDF.Salt {
		t.Error("Rewrapping should draw a new salt")
	}

	if _, err := OpenIdentity(rewrapped, []byte("old-password")); !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Old password should no longer open the identity, got %v", err)
	}

	recovered, err := OpenIdentity(rewrapped, []byte("new-password"))
	if err != nil {
		t.Fatalf("Failed to open rewrapped identity: %v", err)
	}
	if !recovered.Equal(original) {
		t.Fatal("Rewrapped identity holds a different private key")
	}
}

func TestRewrapIdentity_WrongOldPassword(t *testing.T) {
	id := sharedIdentity(t)

	rewrapped, err := RewrapIdentity(id, []byte("not it"), []byte("new-password"))
	if !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if rewrapped != nil {
		t.Error("No identity should be returned on failure")
	}
}

func TestRewrapIdentity_EmptyNewPassword(t *testing.T) {
	id := sharedIdentity(t)

	if _, err := RewrapIdentity(id, testPassword, nil); !errors.Is(err, kerrors.ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	inputs := []string{"", "!!!", EncodeBase64([]byte("not a key"))}
	for _, in := range inputs {
		if _, err := ParsePublicKey(in); !errors.Is(err, kerrors.ErrInvalidPublicKey) {
			t.Errorf("input %q: expected ErrInvalidPublicKey, got %v", in, err)
		}
	}
}

func TestCreateIdentity_RandomnessUnavailable(t *testing.T) {
	withFailingRandomness(t)

	_, err := CreateIdentity(testPassword)
	if err == nil {
		t.Fatal("Expected an error when randomness is unavailable")
	}
	if !errors.Is(err, kerrors.ErrKeyGeneration) && !errors.Is(err, kerrors.ErrRandomnessUnavailable) {
		t.Errorf("Expected ErrKeyGeneration or ErrRandomnessUnavailable, got %v", err)
	}
}

func TestIdentity_Fingerprint(t *testing.T) {
	id := sharedIdentity(t)

	fp, err := id.Fingerprint()
	if err != nil {
		t.Fatalf("Failed to compute fingerprint: %v", err)
	}
	if !strings.HasPrefix(fp, "SHA256:") || len(fp) != len("SHA256:")+43 {
		t.Errorf("Unexpected fingerprint format: %s", fp)
	}

	again, _ := id.Fingerprint()
	if fp != again {
		t.Error("Fingerprint should be stable")
	}

	bad := &Identity{PublicKey: "!!"}
	if _, err := bad.Fingerprint(); !errors.Is(err, kerrors.ErrInvalidPublicKey) {
		t.Errorf("Expected ErrInvalidPublicKey, got %v", err)
	}
}
