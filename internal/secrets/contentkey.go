package secrets

import (
	"crypto/rsa"
	"fmt"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// ContentKey is the one-time AES-256 key protecting a single file.
type ContentKey []byte

// WrappedContentKey is a content key RSA-OAEP encrypted for one holder,
// base64 encoded.
type WrappedContentKey string

// NewContentKey generates a new random content key.
func NewContentKey() (ContentKey, error) {
	key, err := randomBytes(ContentKeySize)
	if err != nil {
		return nil, err
	}
	return ContentKey(key), nil
}

// Destroy zeroes the key material in place.
func (k ContentKey) Destroy() {
	zero(k)
}

// WrapContentKey encrypts key under the holder's public key.
func WrapContentKey(key ContentKey, holder *rsa.PublicKey) (WrappedContentKey, error) {
	if len(key) != ContentKeySize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, ContentKeySize, len(key))
	}
	if holder == nil {
		return "", kerrors.ErrInvalidPublicKey
	}
	if len(key) > maxOAEPPlaintext(holder) {
		return "", fmt.Errorf("%w: key does not fit the holder's modulus", kerrors.ErrInvalidKeyLength)
	}

	ciphertext, err := EncryptWithPublicKey(key, holder)
	if err != nil {
		return "", fmt.Errorf("failed to wrap content key: %w", err)
	}

	return WrappedContentKey(EncodeBase64(ciphertext)), nil
}

// UnwrapContentKey recovers a content key with the holder's private key.
// Every failure returns ErrUnwrapFailed.
func UnwrapContentKey(wrapped WrappedContentKey, holder *rsa.PrivateKey) (ContentKey, error) {
	if holder == nil {
		return nil, kerrors.ErrUnwrapFailed
	}

	ciphertext, err := DecodeBase64(string(wrapped))
	if err != nil {
		return nil, kerrors.ErrUnwrapFailed
	}

	key, err := DecryptWithPrivateKey(ciphertext, holder)
	if err != nil {
		return nil, kerrors.ErrUnwrapFailed
	}
	if len(key) != ContentKeySize {
		zero(key)
		return nil, kerrors.ErrUnwrapFailed
	}

	return ContentKey(key), nil
}
