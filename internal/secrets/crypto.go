package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

const (
	// RSAKeyBits is the modulus size of every identity keypair.
	RSAKeyBits = 2048

	// ContentKeySize is the length of a per-file AES-256 key.
	ContentKeySize = 32

	// NonceSize is the AES-GCM nonce length prepended to every envelope.
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
)

// randReader is the source for every random byte lockbox draws. Tests swap
// it to simulate an unavailable random source.
var randReader io.Reader = rand.Reader

// randomBytes returns n bytes from the system random source.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, kerrors.ErrRandomnessUnavailable
	}
	return b, nil
}

// generateRSAKeyPair creates a new RSA keypair with public exponent 65537.
func generateRSAKeyPair() (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(randReader, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyGeneration, err)
	}
	return privateKey, nil
}

// EncryptWithPublicKey encrypts data using RSA-OAEP with SHA-256.
func EncryptWithPublicKey(plaintext []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), randReader, publicKey, plaintext, nil)
}

// DecryptWithPrivateKey decrypts RSA-OAEP (SHA-256) ciphertext.
func DecryptWithPrivateKey(ciphertext []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), nil, privateKey, ciphertext, nil)
}

// maxOAEPPlaintext is the largest message RSA-OAEP SHA-256 can carry for pub.
func maxOAEPPlaintext(publicKey *rsa.PublicKey) int {
	return publicKey.Size() - 2*sha256.Size - 2
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext under key with a fresh random nonce.
func seal(key, plaintext []byte) (*Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// open authenticates and decrypts an envelope. The returned error is the raw
// primitive error; callers map it to a coarse sentinel.
func open(key []byte, env *Envelope) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != NonceSize {
		return nil, kerrors.ErrInvalidEnvelope
	}
	return gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
}

// zero overwrites b in place.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
