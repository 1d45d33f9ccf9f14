package secrets

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// Identity is a user's long-term keypair as it is stored: the public key in
// the clear, the private key wrapped under a password-derived key.
type Identity struct {
	// PublicKey is base64(SPKI DER).
	PublicKey string `json:"public_key"`

	// WrappedPrivateKey is base64(nonce ‖ AES-256-GCM(PKCS#8 DER)).
	WrappedPrivateKey string `json:"wrapped_private_key"`

	// KDF describes how the wrapping key is derived from the password.
	KDF KDFParams `json:"kdf"`
}

type identityConfig struct {
	kdfAlgorithm string
	iterations   int
}

// IdentityOption customizes CreateIdentity.
type IdentityOption func(*identityConfig)

// WithKDF selects the key-derivation function and, for PBKDF2, the
// iteration count.
func WithKDF(algorithm string, iterations int) IdentityOption {
	return func(c *identityConfig) {
		c.kdfAlgorithm = algorithm
		c.iterations = iterations
	}
}

// CreateIdentity generates a fresh RSA-2048 keypair and wraps the private
// key under a key derived from password with a new random salt.
//
// No password policy is applied beyond rejecting an empty password.
func CreateIdentity(password []byte, opts ...IdentityOption) (*Identity, error) {
	if len(password) == 0 {
		return nil, kerrors.ErrEmptyPassword
	}

	cfg := identityConfig{kdfAlgorithm: KDFPBKDF2SHA256}
	for _, opt := range opts {
		opt(&cfg)
	}

	privateKey, err := generateRSAKeyPair()
	if err != nil {
		return nil, err
	}

	publicKey, err := EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyGeneration, err)
	}

	params, err := NewKDFParams(cfg.kdfAlgorithm, cfg.iterations)
	if err != nil {
		return nil, err
	}

	wrapped, err := wrapPrivateKey(privateKey, params, password)
	if err != nil {
		return nil, err
	}

	return &Identity{
		PublicKey:         publicKey,
		WrappedPrivateKey: wrapped,
		KDF:               params,
	}, nil
}

// OpenIdentity recovers the private key with password.
//
// Every failure after key derivation, including a tampered envelope,
// returns ErrWrongPassword and nothing else.
func OpenIdentity(id *Identity, password []byte) (*rsa.PrivateKey, error) {
	if len(password) == 0 {
		return nil, kerrors.ErrEmptyPassword
	}
	if id == nil {
		return nil, kerrors.ErrWrongPassword
	}

	wrappingKey, err := id.KDF.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	defer zero(wrappingKey)

	env, err := DecodeEnvelope(id.WrappedPrivateKey)
	if err != nil {
		return nil, kerrors.ErrWrongPassword
	}

	der, err := open(wrappingKey, env)
	if err != nil {
		return nil, kerrors.ErrWrongPassword
	}
	defer zero(der)

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, kerrors.ErrWrongPassword
	}
	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, kerrors.ErrWrongPassword
	}

	return privateKey, nil
}

// RewrapIdentity re-wraps the private key under newPassword. The old
// password is verified against the existing envelope first; the keypair
// itself is unchanged and a new salt and nonce are drawn.
func RewrapIdentity(id *Identity, oldPassword, newPassword []byte) (*Identity, error) {
	if len(newPassword) == 0 {
		return nil, kerrors.ErrEmptyPassword
	}

	privateKey, err := OpenIdentity(id, oldPassword)
	if err != nil {
		return nil, err
	}

	iterations := int(id.KDF.Iterations)
	if id.KDF.Algorithm == KDFArgon2id {
		iterations = 0
	}
	params, err := NewKDFParams(id.KDF.Algorithm, iterations)
	if err != nil {
		return nil, err
	}

	wrapped, err := wrapPrivateKey(privateKey, params, newPassword)
	if err != nil {
		return nil, err
	}

	return &Identity{
		PublicKey:         id.PublicKey,
		WrappedPrivateKey: wrapped,
		KDF:               params,
	}, nil
}

// ParsePublicKey decodes the identity's public key.
func (id *Identity) ParsePublicKey() (*rsa.PublicKey, error) {
	return ParsePublicKey(id.PublicKey)
}

// Fingerprint returns "SHA256:" followed by the unpadded base64 SHA-256 of
// the public key DER, the same form ssh-keygen prints.
func (id *Identity) Fingerprint() (string, error) {
	der, err := DecodeBase64(id.PublicKey)
	if err != nil {
		return "", kerrors.ErrInvalidPublicKey
	}
	sum := sha256.Sum256(der)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:]), nil
}

func wrapPrivateKey(privateKey *rsa.PrivateKey, params KDFParams, password []byte) (string, error) {
	wrappingKey, err := params.DeriveKey(password)
	if err != nil {
		return "", err
	}
	defer zero(wrappingKey)

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrKeyGeneration, err)
	}
	defer zero(der)

	env, err := seal(wrappingKey, der)
	if err != nil {
		return "", err
	}

	return env.String(), nil
}

// EncodePublicKey exports an RSA public key as base64(SPKI DER).
func EncodePublicKey(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", err
	}
	return EncodeBase64(der), nil
}

// ParsePublicKey decodes a base64(SPKI DER) RSA public key.
func ParsePublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := DecodeBase64(encoded)
	if err != nil {
		return nil, kerrors.ErrInvalidPublicKey
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, kerrors.ErrInvalidPublicKey
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, kerrors.ErrInvalidPublicKey
	}
	return rsaPub, nil
}
