package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/lockbox/internal/secrets"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "lockbox.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fakeIdentity(tag string) *secrets.Identity {
	return &secrets.Identity{
		PublicKey:         "pub-" + tag,
		WrappedPrivateKey: "wrapped-" + tag,
		KDF: secrets.KDFParams{
			Algorithm:  secrets.KDFPBKDF2SHA256,
			Iterations: secrets.DefaultPBKDF2Iterations,
			Salt:       "salt-" + tag,
		},
	}
}

// seed creates alice and bob, and a file owned by alice.
func seed(t *testing.T, s Store) *FileRecord {
	t.Helper()
	ctx := context.Background()
	for _, user := range []string{"alice", "bob"} {
		if err := s.CreateIdentity(ctx, user, fakeIdentity(user)); err != nil {
			t.Fatalf("Failed to create identity %s: %v", user, err)
		}
	}

	f := &FileRecord{
		OwnerID:         "alice",
		BlobPath:        "alice/1_hello.txt",
		Nonce:           "bm9uY2U=",
		OwnerWrappedKey: "owner-wrapped",
		MimeType:        "text/plain",
		Filename:        "hello.txt",
		Size:            2,
	}
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	return f
}

func grantFor(t *testing.T, s Store, fileID string, downloads int, expires *time.Time) *ShareGrant {
	t.Helper()
	g := &ShareGrant{
		FileID:             fileID,
		SenderID:           "alice",
		ReceiverID:         "bob",
		WrappedKey:         "bob-wrapped",
		ExpiresAt:          expires,
		DownloadsRemaining: downloads,
	}
	if err := s.CreateShare(context.Background(), g); err != nil {
		t.Fatalf("Failed to create share: %v", err)
	}
	return g
}
