package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// ChangePasswordOptions configures the password change workflow.
type ChangePasswordOptions struct {
	UserID      string
	OldPassword *secrets.Credential
	NewPassword *secrets.Credential
}

// ChangePasswordResult contains the outcome of a password change.
type ChangePasswordResult struct {
	UserID string

	// KDF is the key-derivation function protecting the re-wrapped key.
	KDF string
}

// ChangePassword re-wraps the user's private key under a new password.
//
// The old password is verified against the stored envelope first. The
// keypair does not change, so existing wrapped content keys and share
// grants stay valid. The new envelope uses a fresh salt and nonce, and is
// stored only if the identity was not changed concurrently.
//
// Returns ErrWrongPassword if the old password does not open the identity.
// Returns ErrIdentityConflict if another password change won the race.
// Returns ErrSameCredential if OldPassword and NewPassword are one handle.
func ChangePassword(ctx context.Context, env *Env, opts ChangePasswordOptions) (*ChangePasswordResult, error) {
	if opts.OldPassword == nil || opts.NewPassword == nil {
		return nil, kerrors.ErrEmptyPassword
	}
	// Use holds the credential's lock, so one handle cannot be nested in itself.
	if opts.OldPassword == opts.NewPassword {
		return nil, kerrors.ErrSameCredential
	}

	record, err := env.Store.GetIdentity(ctx, opts.UserID)
	if err != nil {
		return nil, err
	}
	current := record.Identity

	next, err := runCrypto(ctx, func() (*secrets.Identity, error) {
		var id *secrets.Identity
		err := opts.OldPassword.Use(func(oldPassword []byte) error {
			return opts.NewPassword.Use(func(newPassword []byte) error {
				var err error
				id, err = secrets.RewrapIdentity(&current, oldPassword, newPassword)
				return err
			})
		})
		return id, err
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := env.Store.UpdateIdentity(ctx, opts.UserID, &current, next); err != nil {
		return nil, fmt.Errorf("storing re-wrapped identity: %w", err)
	}

	entry := audit.LogWithUser(audit.OpPasswd, opts.UserID)
	entry.KDF = next.KDF.Algorithm
	audit.Log(entry)

	return &ChangePasswordResult{UserID: opts.UserID, KDF: next.KDF.Algorithm}, nil
}
