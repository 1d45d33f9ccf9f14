package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// RegisterOptions configures the register workflow.
type RegisterOptions struct {
	// UserID names the new account.
	UserID string

	// Password protects the new identity. The workflow does not destroy it.
	Password *secrets.Credential
}

// RegisterResult contains the outcome of a register operation.
type RegisterResult struct {
	UserID string

	// Fingerprint identifies the new public key.
	Fingerprint string

	// KDF is the key-derivation function protecting the private key.
	KDF string
}

// Register creates an identity for a new user.
//
// It generates an RSA-2048 keypair, wraps the private key under a key
// derived from the password with a fresh salt, and stores the result. Only
// the public key and the wrapped private key leave this function.
//
// Returns ErrInvalidUserID if the user ID is not usable.
// Returns ErrIdentityExists if the user already has an identity.
// Returns ErrEmptyPassword or ErrCredentialDestroyed for an unusable password.
func Register(ctx context.Context, env *Env, opts RegisterOptions) (*RegisterResult, error) {
	if err := validateUserID(opts.UserID); err != nil {
		return nil, err
	}
	if opts.Password == nil {
		return nil, kerrors.ErrEmptyPassword
	}

	// Fail before the expensive key generation if the user exists.
	if _, err := env.Store.GetIdentity(ctx, opts.UserID); err == nil {
		return nil, kerrors.ErrIdentityExists
	} else if !errors.Is(err, kerrors.ErrUserNotFound) {
		return nil, fmt.Errorf("checking existing identity: %w", err)
	}

	cfg := env.config()
	identity, err := runCrypto(ctx, func() (*secrets.Identity, error) {
		var id *secrets.Identity
		err := opts.Password.Use(func(password []byte) error {
			var err error
			id, err = secrets.CreateIdentity(password, secrets.WithKDF(cfg.Crypto.KDF, cfg.Crypto.KDFIterations))
			return err
		})
		return id, err
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := env.Store.CreateIdentity(ctx, opts.UserID, identity); err != nil {
		return nil, fmt.Errorf("storing identity: %w", err)
	}

	fingerprint, err := identity.Fingerprint()
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser(audit.OpRegister, opts.UserID)
	entry.KDF = identity.KDF.Algorithm
	audit.Log(entry)

	return &RegisterResult{
		UserID:      opts.UserID,
		Fingerprint: fingerprint,
		KDF:         identity.KDF.Algorithm,
	}, nil
}
