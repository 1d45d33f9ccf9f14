package store

import (
	"context"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// IdentityStore holds one identity per user.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, userID string, id *secrets.Identity) error
	GetIdentity(ctx context.Context, userID string) (*IdentityRecord, error)

	// UpdateIdentity replaces the identity only if the stored wrapped key
	// still equals expected.WrappedPrivateKey.
	UpdateIdentity(ctx context.Context, userID string, expected, next *secrets.Identity) error
}

// FileStore holds file records.
type FileStore interface {
	CreateFile(ctx context.Context, f *FileRecord) error
	GetFile(ctx context.Context, id string) (*FileRecord, error)
	ListFilesByOwner(ctx context.Context, ownerID string) ([]FileRecord, error)
}

// ShareStore holds share grants.
type ShareStore interface {
	CreateShare(ctx context.Context, g *ShareGrant) error
	GetShare(ctx context.Context, id string) (*ShareGrant, error)
	ListSharesBySender(ctx context.Context, senderID string) ([]ShareGrant, error)
	ListSharesByReceiver(ctx context.Context, receiverID string) ([]ShareGrant, error)
	ListSharesByFile(ctx context.Context, fileID string) ([]ShareGrant, error)
	DeleteShare(ctx context.Context, id string) error

	// ConsumeDownload atomically records one download against a grant. A
	// limited grant is decremented only if its count is positive; an
	// unlimited grant is left unchanged. It returns the remaining count.
	ConsumeDownload(ctx context.Context, shareID string, now time.Time) (int, error)
}

// Store is the metadata store used by workflows.
type Store interface {
	IdentityStore
	FileStore
	ShareStore

	Stats(ctx context.Context, userID string) (*Stats, error)
	Close() error
}

// ResolveKey selects the wrapped content key that belongs to userID.
//
// For Owner the file must be owned by userID. For Grantee the grant must be
// addressed to userID and still available at now; a grant addressed to
// someone else is reported as not found.
func ResolveKey(ctx context.Context, s Store, userID string, holder KeyHolder, now time.Time) (*ResolvedKey, error) {
	switch h := holder.(type) {
	case Owner:
		file, err := s.GetFile(ctx, h.FileID)
		if err != nil {
			return nil, err
		}
		if file.OwnerID != userID {
			return nil, kerrors.ErrNotOwner
		}
		return &ResolvedKey{File: *file, WrappedKey: file.OwnerWrappedKey}, nil

	case Grantee:
		share, err := s.GetShare(ctx, h.ShareID)
		if err != nil {
			return nil, err
		}
		if share.ReceiverID != userID {
			return nil, kerrors.ErrShareNotFound
		}
		switch share.Status(now) {
		case ShareExpired:
			return nil, kerrors.ErrShareExpired
		case ShareExhausted:
			return nil, kerrors.ErrShareExhausted
		}
		file, err := s.GetFile(ctx, share.FileID)
		if err != nil {
			return nil, err
		}
		return &ResolvedKey{File: *file, WrappedKey: share.WrappedKey, Share: share}, nil

	default:
		return nil, fmt.Errorf("unknown key holder %T", holder)
	}
}
