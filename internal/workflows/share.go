package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// ShareOptions configures the share workflow.
type ShareOptions struct {
	UserID    string
	FileID    string
	Recipient string
	Password  *secrets.Credential

	// ExpiresIn limits how long the grant is usable. Zero uses the
	// configured default; a negative value means the grant never expires.
	ExpiresIn time.Duration

	// Downloads limits how many times the grant can be used. Zero uses the
	// configured default; store.Unlimited means no limit.
	Downloads int
}

// ShareResult contains the outcome of a share operation.
type ShareResult struct {
	Grant    store.ShareGrant
	Filename string
}

// Share grants a recipient access to a file the user owns.
//
// The owner's identity is opened with the password, the file's content key
// is unwrapped and wrapped again for the recipient's public key. The file
// ciphertext is not touched. The grant is stored only after re-wrapping
// succeeds, so a failure never leaves a partial grant.
//
// Returns ErrSelfShare if the recipient is the owner.
// Returns ErrNotOwner if the user does not own the file.
// Returns ErrUserNotFound if the recipient has no identity.
// Returns ErrInvalidDownloadLimit for a download limit below -1.
// Returns ErrWrongPassword if the password does not open the identity.
func Share(ctx context.Context, env *Env, opts ShareOptions) (*ShareResult, error) {
	if opts.Password == nil {
		return nil, kerrors.ErrEmptyPassword
	}
	if opts.Recipient == opts.UserID {
		return nil, kerrors.ErrSelfShare
	}

	downloads, expiresAt, err := shareLimits(env, opts)
	if err != nil {
		return nil, err
	}

	resolved, err := store.ResolveKey(ctx, env.Store, opts.UserID, store.Owner{FileID: opts.FileID}, env.now())
	if err != nil {
		return nil, err
	}

	owner, err := env.Store.GetIdentity(ctx, opts.UserID)
	if err != nil {
		return nil, err
	}

	recipient, err := env.Store.GetIdentity(ctx, opts.Recipient)
	if err != nil {
		if errors.Is(err, kerrors.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: recipient %s", kerrors.ErrUserNotFound, opts.Recipient)
		}
		return nil, err
	}
	recipientKey, err := recipient.Identity.ParsePublicKey()
	if err != nil {
		return nil, err
	}

	wrapped, err := runCrypto(ctx, func() (secrets.WrappedContentKey, error) {
		var w secrets.WrappedContentKey
		err := opts.Password.Use(func(pw []byte) error {
			var err error
			w, err = secrets.ReshareContentKey(&owner.Identity, pw, resolved.WrappedKey, recipientKey)
			return err
		})
		return w, err
	}, nil)
	if err != nil {
		return nil, err
	}

	grant := &store.ShareGrant{
		FileID:             resolved.File.ID,
		SenderID:           opts.UserID,
		ReceiverID:         opts.Recipient,
		WrappedKey:         wrapped,
		ExpiresAt:          expiresAt,
		DownloadsRemaining: downloads,
		CreatedAt:          env.now().UTC(),
	}
	if err := env.Store.CreateShare(ctx, grant); err != nil {
		return nil, fmt.Errorf("storing share: %w", err)
	}

	entry := audit.LogWithUser(audit.OpShare, opts.UserID)
	entry.FileID = grant.FileID
	entry.ShareID = grant.ID
	entry.TargetUser = grant.ReceiverID
	entry.DownloadsRemaining = &downloads
	if expiresAt != nil {
		entry.ExpiresAt = expiresAt.Format(time.RFC3339)
	}
	audit.Log(entry)

	return &ShareResult{Grant: *grant, Filename: resolved.File.Filename}, nil
}

func shareLimits(env *Env, opts ShareOptions) (int, *time.Time, error) {
	cfg := env.config()

	downloads := opts.Downloads
	if downloads == 0 {
		downloads = cfg.Shares.DefaultDownloads
	}
	if downloads == 0 || downloads < store.Unlimited {
		return 0, nil, kerrors.ErrInvalidDownloadLimit
	}

	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		d, err := cfg.DefaultExpiry()
		if err != nil {
			return 0, nil, err
		}
		expiresIn = d
	}

	var expiresAt *time.Time
	if expiresIn > 0 {
		t := env.now().Add(expiresIn).UTC()
		expiresAt = &t
	}
	return downloads, expiresAt, nil
}
