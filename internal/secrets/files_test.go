package secrets

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func mustContentKey(t *testing.T) ContentKey {
	t.Helper()
	key, err := NewContentKey()
	if err != nil {
		t.Fatalf("Failed to create content key: %v", err)
	}
	return key
}

func TestEncryptFile_RoundTrip(t *testing.T) {
	large := make([]byte, 1<<20)
	if _, err := rand.Read(large); err != nil {
		t.Fatalf("Failed to fill test data: %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty file", []byte{}},
		{"short text", []byte("hi")},
		{"binary with zeros", []byte{0, 0, 1, 0, 255, 0}},
		{"one megabyte", large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := mustContentKey(t)

			env, err := EncryptFile(tt.plaintext, key)
			if err != nil {
				t.Fatalf("Failed to encrypt: %v", err)
			}
			if len(env.Nonce) != NonceSize {
				t.Errorf("Expected %d-byte nonce, got %d", NonceSize, len(env.Nonce))
			}
			if len(env.Ciphertext) != len(tt.plaintext)+TagSize {
				t.Errorf("Expected %d-byte ciphertext, got %d", len(tt.plaintext)+TagSize, len(env.Ciphertext))
			}

			// Go through the wire form to exercise the codec as storage would.
			parsed, err := ParseEnvelope(env.Bytes())
			if err != nil {
				t.Fatalf("Failed to parse envelope: %v", err)
			}

			got, err := DecryptFile(parsed, key)
			if err != nil {
				t.Fatalf("Failed to decrypt: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Fatal("Decrypted bytes differ from the original")
			}
		})
	}
}

func TestDecryptFile_TamperedCiphertext(t *testing.T) {
	key := mustContentKey(t)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	env, err := EncryptFile(plaintext, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	wire := env.Bytes()

	for pos := range wire {
		tampered := make([]byte, len(wire))
		copy(tampered, wire)
		tampered[pos] ^= 0x01

		parsed, err := ParseEnvelope(tampered)
		if err != nil {
			t.Fatalf("Failed to parse envelope: %v", err)
		}

		got, err := DecryptFile(parsed, key)
		if !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Fatalf("byte %d: expected ErrDecryptFailed, got %v", pos, err)
		}
		if got != nil {
			t.Fatalf("byte %d: plaintext returned despite failure", pos)
		}
	}
}

func TestDecryptFile_WrongKey(t *testing.T) {
	env, err := EncryptFile([]byte("secret"), mustContentKey(t))
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	got, err := DecryptFile(env, mustContentKey(t))
	if !errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
	if got != nil {
		t.Error("No plaintext should be returned on failure")
	}
}

func TestDecryptFile_NilEnvelope(t *testing.T) {
	if _, err := DecryptFile(nil, mustContentKey(t)); !errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
}

func TestEncryptFile_InvalidKeyLength(t *testing.T) {
	for _, size := range []int{0, 16, 24, 33} {
		_, err := EncryptFile([]byte("x"), ContentKey(make([]byte, size)))
		if !errors.Is(err, kerrors.ErrInvalidKeyLength) {
			t.Errorf("size %d: expected ErrInvalidKeyLength, got %v", size, err)
		}
	}
}

// TestEncryptFile_NonceUniqueness draws many nonces under one key. With
// 96-bit random nonces the birthday bound for 10,000 draws is about 2^-70,
// so any collision means the nonce source is broken.
func TestEncryptFile_NonceUniqueness(t *testing.T) {
	const n = 10000
	key := mustContentKey(t)
	seen := make(map[[NonceSize]byte]struct{}, n)

	for i := 0; i < n; i++ {
		env, err := EncryptFile([]byte("same plaintext every time"), key)
		if err != nil {
			t.Fatalf("Failed to encrypt: %v", err)
		}

		var nonce [NonceSize]byte
		copy(nonce[:], env.Nonce)
		if _, dup := seen[nonce]; dup {
			t.Fatalf("Nonce collision after %d encryptions", i)
		}
		seen[nonce] = struct{}{}
	}
}

func TestEncryptFile_RandomnessUnavailable(t *testing.T) {
	key := mustContentKey(t)
	withFailingRandomness(t)

	env, err := EncryptFile([]byte("x"), key)
	if !errors.Is(err, kerrors.ErrRandomnessUnavailable) {
		t.Errorf("Expected ErrRandomnessUnavailable, got %v", err)
	}
	if env != nil {
		t.Error("No envelope should be returned on failure")
	}
}
