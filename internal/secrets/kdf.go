package secrets

import (
	"crypto/sha256"
	"fmt"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Supported password key-derivation functions.
const (
	KDFPBKDF2SHA256 = "pbkdf2-sha256"
	KDFArgon2id     = "argon2id"
)

const (
	// DefaultPBKDF2Iterations is used when no iteration count is configured.
	DefaultPBKDF2Iterations = 310000

	// MinPBKDF2Iterations is the floor enforced for every new identity.
	MinPBKDF2Iterations = 100000

	// SaltSize is the length of the per-identity random salt.
	SaltSize = 16

	wrappingKeyLen = 32

	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4

	// Bounds for argon2id parameters read back from storage. Memory is in KiB.
	argonMaxTime   = 64
	argonMaxMemory = 1024 * 1024 // 1 GiB
)

// KDFParams records how an identity's wrapping key is derived from the
// account password. Every identity carries its own random salt.
type KDFParams struct {
	Algorithm  string `json:"alg"`
	Iterations uint32 `json:"iterations"`
	Memory     uint32 `json:"memory,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`
	Salt       string `json:"salt"`
}

// NewKDFParams returns parameters for algorithm with a fresh random salt.
// For PBKDF2, iterations below MinPBKDF2Iterations are raised to the floor
// and zero selects DefaultPBKDF2Iterations.
func NewKDFParams(algorithm string, iterations int) (KDFParams, error) {
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return KDFParams{}, err
	}

	switch algorithm {
	case "", KDFPBKDF2SHA256:
		if iterations == 0 {
			iterations = DefaultPBKDF2Iterations
		}
		if iterations < MinPBKDF2Iterations {
			iterations = MinPBKDF2Iterations
		}
		return KDFParams{
			Algorithm:  KDFPBKDF2SHA256,
			Iterations: uint32(iterations),
			Salt:       EncodeBase64(salt),
		}, nil
	case KDFArgon2id:
		return KDFParams{
			Algorithm:  KDFArgon2id,
			Iterations: argonTime,
			Memory:     argonMemory,
			Threads:    argonThreads,
			Salt:       EncodeBase64(salt),
		}, nil
	default:
		return KDFParams{}, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedKDF, algorithm)
	}
}

// DeriveKey stretches password into a 256-bit wrapping key.
func (p KDFParams) DeriveKey(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, kerrors.ErrEmptyPassword
	}

	salt, err := DecodeBase64(p.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: missing or malformed salt", kerrors.ErrUnsupportedKDF)
	}

	switch p.Algorithm {
	case KDFPBKDF2SHA256:
		if p.Iterations < MinPBKDF2Iterations {
			return nil, fmt.Errorf("%w: %d iterations is below the minimum", kerrors.ErrUnsupportedKDF, p.Iterations)
		}
		return pbkdf2.Key(password, salt, int(p.Iterations), wrappingKeyLen, sha256.New), nil
	case KDFArgon2id:
		if err := p.checkArgon2(); err != nil {
			return nil, err
		}
		return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Threads, wrappingKeyLen), nil
	default:
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedKDF, p.Algorithm)
	}
}

// checkArgon2 rejects stored argon2id parameters that argon2.IDKey would
// panic on or that would exhaust memory.
func (p KDFParams) checkArgon2() error {
	switch {
	case p.Iterations < 1 || p.Iterations > argonMaxTime:
		return fmt.Errorf("%w: argon2id time %d out of range", kerrors.ErrUnsupportedKDF, p.Iterations)
	case p.Threads < 1:
		return fmt.Errorf("%w: argon2id needs at least one thread", kerrors.ErrUnsupportedKDF)
	case p.Memory < 8*uint32(p.Threads) || p.Memory > argonMaxMemory:
		return fmt.Errorf("%w: argon2id memory %d KiB out of range", kerrors.ErrUnsupportedKDF, p.Memory)
	}
	return nil
}
