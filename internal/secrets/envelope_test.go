package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func TestEnvelope_WireLayout(t *testing.T) {
	nonce := bytes.Repeat([]byte{0xAA}, NonceSize)
	ciphertext := bytes.Repeat([]byte{0xBB}, 40)
	env := &Envelope{Nonce: nonce, Ciphertext: ciphertext}

	wire := env.Bytes()
	if len(wire) != NonceSize+len(ciphertext) {
		t.Fatalf("Expected %d bytes, got %d", NonceSize+len(ciphertext), len(wire))
	}
	if !bytes.Equal(wire[:NonceSize], nonce) {
		t.Errorf("Expected nonce prefix, got %x", wire[:NonceSize])
	}
	if !bytes.Equal(wire[NonceSize:], ciphertext) {
		t.Errorf("Expected ciphertext after nonce")
	}

	parsed, err := DecodeEnvelope(env.String())
	if err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !bytes.Equal(parsed.Nonce, nonce) || !bytes.Equal(parsed.Ciphertext, ciphertext) {
		t.Errorf("Decoded envelope does not match original")
	}
}

func TestParseEnvelope_DoesNotAliasInput(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, NonceSize+TagSize)
	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("Failed to parse envelope: %v", err)
	}

	data[0] = 0xFF
	data[NonceSize] = 0xFF
	if env.Nonce[0] != 0x01 || env.Ciphertext[0] != 0x01 {
		t.Errorf("Parsed envelope should not share memory with the input")
	}
}

func TestParseEnvelope_TooShort(t *testing.T) {
	for _, size := range []int{0, 1, NonceSize, NonceSize + TagSize - 1} {
		_, err := ParseEnvelope(make([]byte, size))
		if !errors.Is(err, kerrors.ErrInvalidEnvelope) {
			t.Errorf("size %d: expected ErrInvalidEnvelope, got %v", size, err)
		}
	}
}

func TestDecodeEnvelope_InvalidBase64(t *testing.T) {
	_, err := DecodeEnvelope("not base64 at all!")
	if !errors.Is(err, kerrors.ErrInvalidEnvelope) {
		t.Errorf("Expected ErrInvalidEnvelope, got %v", err)
	}
}

func TestDecodeBase64_AcceptsUnpadded(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	raw := base64.RawStdEncoding.EncodeToString(data)

	got, err := DecodeBase64(raw)
	if err != nil {
		t.Fatalf("Failed to decode unpadded base64: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %v, got %v", data, got)
	}
}
