package secrets

import (
	"crypto/rsa"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// ReshareContentKey transfers access to a file's content key from its owner
// to a recipient. The owner's private key is opened with ownerPassword, the
// owner's wrapped key is unwrapped and the content key is wrapped again for
// recipient. File ciphertext is never touched and the plain content key is
// zeroed before returning.
//
// Any failure returns an empty key: there is no partial grant.
func ReshareContentKey(owner *Identity, ownerPassword []byte, ownerWrapped WrappedContentKey, recipient *rsa.PublicKey) (WrappedContentKey, error) {
	if recipient == nil {
		return "", kerrors.ErrInvalidPublicKey
	}

	privateKey, err := OpenIdentity(owner, ownerPassword)
	if err != nil {
		return "", err
	}

	contentKey, err := UnwrapContentKey(ownerWrapped, privateKey)
	if err != nil {
		return "", err
	}
	defer contentKey.Destroy()

	return WrapContentKey(contentKey, recipient)
}
