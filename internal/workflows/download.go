package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// DownloadOptions configures the owner download workflow.
type DownloadOptions struct {
	UserID   string
	FileID   string
	Password *secrets.Credential
}

// SharedDownloadOptions configures the grantee download workflow.
type SharedDownloadOptions struct {
	UserID   string
	ShareID  string
	Password *secrets.Credential
}

// DownloadResult contains the decrypted file.
type DownloadResult struct {
	File store.FileRecord

	// Plaintext is the decrypted content. Callers should clear it when done.
	Plaintext []byte

	// Share is the grant used, after this download was recorded. It is nil
	// for owner downloads.
	Share *store.ShareGrant
}

// Download decrypts a file the user owns.
//
// Returns ErrNotOwner if the file belongs to someone else.
// Returns ErrWrongPassword if the password does not open the identity.
// Returns ErrUnwrapFailed or ErrDecryptFailed if stored data is corrupt.
func Download(ctx context.Context, env *Env, opts DownloadOptions) (*DownloadResult, error) {
	resolved, plaintext, err := openAndDecrypt(ctx, env, opts.UserID, store.Owner{FileID: opts.FileID}, opts.Password)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser(audit.OpDownload, opts.UserID)
	entry.FileID = resolved.File.ID
	entry.Filename = resolved.File.Filename
	audit.Log(entry)

	return &DownloadResult{File: resolved.File, Plaintext: plaintext}, nil
}

// SharedDownload decrypts a file shared with the user and records the
// download against the grant.
//
// The download is recorded only after decryption succeeds, and the
// recording itself is an atomic decrement in the metadata store. If a
// concurrent download took the last use first, the plaintext is discarded
// and ErrShareExhausted is returned.
//
// Returns ErrShareNotFound if the grant does not exist or is addressed to
// someone else.
// Returns ErrShareExpired if the grant's expiry has passed.
// Returns ErrShareExhausted if no downloads remain.
// Returns ErrWrongPassword if the password does not open the identity.
func SharedDownload(ctx context.Context, env *Env, opts SharedDownloadOptions) (*DownloadResult, error) {
	resolved, plaintext, err := openAndDecrypt(ctx, env, opts.UserID, store.Grantee{ShareID: opts.ShareID}, opts.Password)
	if err != nil {
		return nil, err
	}

	remaining, err := env.Store.ConsumeDownload(context.WithoutCancel(ctx), opts.ShareID, env.now())
	if err != nil {
		zeroBytes(plaintext)
		return nil, err
	}

	share := *resolved.Share
	share.DownloadsRemaining = remaining

	entry := audit.LogWithUser(audit.OpSharedDownload, opts.UserID)
	entry.FileID = resolved.File.ID
	entry.ShareID = share.ID
	entry.DownloadsRemaining = &remaining
	audit.Log(entry)

	return &DownloadResult{File: resolved.File, Plaintext: plaintext, Share: &share}, nil
}

// openAndDecrypt is the one decryption path for owners and grantees. The
// holder decides which wrapped key applies; everything after that is the
// same: open identity, unwrap content key, fetch blob, decrypt.
func openAndDecrypt(ctx context.Context, env *Env, userID string, holder store.KeyHolder, password *secrets.Credential) (*store.ResolvedKey, []byte, error) {
	if password == nil {
		return nil, nil, kerrors.ErrEmptyPassword
	}

	resolved, err := store.ResolveKey(ctx, env.Store, userID, holder, env.now())
	if err != nil {
		return nil, nil, err
	}

	record, err := env.Store.GetIdentity(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	blob, err := env.Blobs.Get(ctx, resolved.File.BlobPath)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching ciphertext: %w", err)
	}

	envelope, err := secrets.ParseEnvelope(blob)
	if err != nil {
		return nil, nil, kerrors.ErrDecryptFailed
	}
	if secrets.EncodeBase64(envelope.Nonce) != resolved.File.Nonce {
		return nil, nil, kerrors.ErrDecryptFailed
	}

	plaintext, err := runCrypto(ctx, func() ([]byte, error) {
		return decryptWithIdentity(&record.Identity, password, resolved.WrappedKey, envelope)
	}, zeroBytes)
	if err != nil {
		return nil, nil, err
	}

	return resolved, plaintext, nil
}

func decryptWithIdentity(identity *secrets.Identity, password *secrets.Credential, wrapped secrets.WrappedContentKey, envelope *secrets.Envelope) ([]byte, error) {
	var plaintext []byte
	err := password.Use(func(pw []byte) error {
		privateKey, err := secrets.OpenIdentity(identity, pw)
		if err != nil {
			return err
		}

		key, err := secrets.UnwrapContentKey(wrapped, privateKey)
		if err != nil {
			return err
		}
		defer key.Destroy()

		plaintext, err = secrets.DecryptFile(envelope, key)
		return err
	})
	return plaintext, err
}
