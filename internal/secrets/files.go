package secrets

import (
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// EncryptFile encrypts the whole of plaintext under key with AES-256-GCM and
// a fresh random nonce. The file is held in memory in full.
func EncryptFile(plaintext []byte, key ContentKey) (*Envelope, error) {
	if len(key) != ContentKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, ContentKeySize, len(key))
	}

	env, err := seal(key, plaintext)
	if err != nil {
		if errors.Is(err, kerrors.ErrRandomnessUnavailable) {
			return nil, err
		}
		return nil, kerrors.ErrEncryptFailed
	}
	return env, nil
}

// DecryptFile authenticates and decrypts env under key. It fails closed: on
// any authentication failure no plaintext is returned.
func DecryptFile(env *Envelope, key ContentKey) ([]byte, error) {
	if len(key) != ContentKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, ContentKeySize, len(key))
	}
	if env == nil {
		return nil, kerrors.ErrDecryptFailed
	}

	plaintext, err := open(key, env)
	if err != nil {
		return nil, kerrors.ErrDecryptFailed
	}
	return plaintext, nil
}
