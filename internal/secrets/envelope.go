package secrets

import (
	"encoding/base64"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// Envelope is the output of one authenticated symmetric encryption.
//
// Its wire form is nonce(12) ‖ ciphertext-with-tag, with no length prefix:
// the nonce length is fixed, so the split point is implicit.
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte
}

// Bytes returns the concatenated wire form.
func (e *Envelope) Bytes() []byte {
	out := make([]byte, 0, len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Nonce...)
	return append(out, e.Ciphertext...)
}

// String returns the base64 encoding of the wire form.
func (e *Envelope) String() string {
	return EncodeBase64(e.Bytes())
}

// ParseEnvelope splits a wire-form blob into nonce and ciphertext. The blob
// must hold at least a nonce and an authentication tag.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < NonceSize+TagSize {
		return nil, kerrors.ErrInvalidEnvelope
	}

	nonce := make([]byte, NonceSize)
	copy(nonce, data[:NonceSize])
	ciphertext := make([]byte, len(data)-NonceSize)
	copy(ciphertext, data[NonceSize:])

	return &Envelope{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// DecodeEnvelope parses the base64 text form produced by Envelope.String.
func DecodeEnvelope(s string) (*Envelope, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return nil, kerrors.ErrInvalidEnvelope
	}
	return ParseEnvelope(data)
}

// EncodeBase64 encodes bytes to standard base64 with padding.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes standard base64, with or without padding.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
