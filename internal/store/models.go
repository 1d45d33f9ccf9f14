package store

import (
	"time"

	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// Unlimited is the DownloadsRemaining value of a grant with no download limit.
const Unlimited = -1

// IdentityRecord is the one-per-user identity row.
type IdentityRecord struct {
	UserID    string
	Identity  secrets.Identity
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileRecord describes one uploaded file. It is immutable after upload.
type FileRecord struct {
	ID              string
	OwnerID         string
	BlobPath        string
	Nonce           string // base64 of the envelope nonce
	OwnerWrappedKey secrets.WrappedContentKey
	MimeType        string
	Filename        string
	Size            int64 // plaintext size in bytes
	CreatedAt       time.Time
}

// ShareGrant gives one receiver access to one file through a content key
// wrapped for the receiver's public key.
type ShareGrant struct {
	ID                 string
	FileID             string
	SenderID           string
	ReceiverID         string
	WrappedKey         secrets.WrappedContentKey
	ExpiresAt          *time.Time
	DownloadsRemaining int // Unlimited, 0 when exhausted, otherwise positive
	CreatedAt          time.Time
}

// ShareStatus summarizes whether a grant can still be downloaded.
type ShareStatus string

const (
	ShareActive    ShareStatus = "active"
	ShareExpired   ShareStatus = "expired"
	ShareExhausted ShareStatus = "exhausted"
)

// Expired reports whether the grant's expiry is at or before now.
func (g ShareGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// Exhausted reports whether the grant has no downloads left.
func (g ShareGrant) Exhausted() bool {
	return g.DownloadsRemaining == 0
}

// Available reports whether the grant may be offered for download. An
// expired grant is never available, whatever its remaining count.
func (g ShareGrant) Available(now time.Time) bool {
	return g.Status(now) == ShareActive
}

// Status returns the grant's status at now. Expiry takes precedence.
func (g ShareGrant) Status(now time.Time) ShareStatus {
	switch {
	case g.Expired(now):
		return ShareExpired
	case g.Exhausted():
		return ShareExhausted
	default:
		return ShareActive
	}
}

// NextRemaining returns the value DownloadsRemaining should take after one
// successful download. It only computes the value; the metadata store
// applies it atomically.
func (g ShareGrant) NextRemaining() int {
	if g.DownloadsRemaining <= 0 {
		return g.DownloadsRemaining
	}
	return g.DownloadsRemaining - 1
}

// Stats counts a user's records.
type Stats struct {
	FilesOwned     int
	SharesSent     int
	SharesReceived int
}

// KeyHolder selects which wrapped content key applies to the caller.
// It is either Owner or Grantee.
type KeyHolder interface {
	keyHolder()
}

// Owner selects the owner's own wrapped key for a file.
type Owner struct {
	FileID string
}

// Grantee selects the wrapped key carried by a share grant.
type Grantee struct {
	ShareID string
}

func (Owner) keyHolder()   {}
func (Grantee) keyHolder() {}

// ResolvedKey is the result of resolving a KeyHolder for a user.
type ResolvedKey struct {
	File       FileRecord
	WrappedKey secrets.WrappedContentKey

	// Share is set when the key came from a grant.
	Share *ShareGrant
}
