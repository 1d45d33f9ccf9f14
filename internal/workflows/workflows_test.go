package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/store"
)

func TestScenario_SingleUseShare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")

	file := env.upload(t, "alice", "hello.txt", "hi")
	if file.Filename != "hello.txt" || file.Size != 2 {
		t.Errorf("Unexpected file record: %+v", file)
	}

	grant := env.share(t, ShareOptions{
		UserID:    "alice",
		FileID:    file.ID,
		Recipient: "bob",
		Password:  credential(t, "alice-pw"),
		Downloads: 1,
	})

	first, err := SharedDownload(ctx, env.Env, SharedDownloadOptions{
		UserID:   "bob",
		ShareID:  grant.ID,
		Password: credential(t, "bob-pw"),
	})
	if err != nil {
		t.Fatalf("First shared download failed: %v", err)
	}
	if string(first.Plaintext) != "hi" {
		t.Errorf("Expected %q, got %q", "hi", first.Plaintext)
	}
	if first.Share.DownloadsRemaining != 0 {
		t.Errorf("Expected 0 downloads remaining, got %d", first.Share.DownloadsRemaining)
	}

	_, err = SharedDownload(ctx, env.Env, SharedDownloadOptions{
		UserID:   "bob",
		ShareID:  grant.ID,
		Password: credential(t, "bob-pw"),
	})
	if !errors.Is(err, kerrors.ErrShareExhausted) {
		t.Errorf("Expected ErrShareExhausted on second download, got %v", err)
	}

	// The owner is unaffected by the grant.
	owned, err := Download(ctx, env.Env, DownloadOptions{UserID: "alice", FileID: file.ID, Password: credential(t, "alice-pw")})
	if err != nil {
		t.Fatalf("Owner download failed: %v", err)
	}
	if string(owned.Plaintext) != "hi" {
		t.Errorf("Expected %q, got %q", "hi", owned.Plaintext)
	}
}

func TestDownload_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "notes.md", "# notes")

	tests := []struct {
		name string
		opts DownloadOptions
		want error
	}{
		{"wrong password", DownloadOptions{UserID: "alice", FileID: file.ID, Password: credential(t, "nope")}, kerrors.ErrWrongPassword},
		{"not owner", DownloadOptions{UserID: "bob", FileID: file.ID, Password: credential(t, "bob-pw")}, kerrors.ErrNotOwner},
		{"missing file", DownloadOptions{UserID: "alice", FileID: "missing", Password: credential(t, "alice-pw")}, kerrors.ErrFileNotFound},
		{"no password", DownloadOptions{UserID: "alice", FileID: file.ID}, kerrors.ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Download(ctx, env.Env, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if result != nil {
				t.Error("Expected no result on failure")
			}
		})
	}
}

func TestDownload_TamperedBlob(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice-pw")
	file := env.upload(t, "alice", "a.bin", "secret bytes")

	blobPath := filepath.Join(env.dir, "blobs", filepath.FromSlash(file.BlobPath))
	data, err := os.ReadFile(blobPath)
	if err != nil {
		t.Fatalf("Failed to read blob: %v", err)
	}
	data[len(data)-1] ^= 0x01
	if err := os.WriteFile(blobPath, data, 0600); err != nil {
		t.Fatalf("Failed to write blob: %v", err)
	}

	_, err = Download(context.Background(), env.Env, DownloadOptions{UserID: "alice", FileID: file.ID, Password: credential(t, "alice-pw")})
	if !errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
}

func TestShare_ExpiredGrantNeverOffered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "report.pdf", "%PDF-1.7")

	grant := env.share(t, ShareOptions{
		UserID:    "alice",
		FileID:    file.ID,
		Recipient: "bob",
		Password:  credential(t, "alice-pw"),
		ExpiresIn: time.Hour,
		Downloads: 5,
	})
	if grant.ExpiresAt == nil {
		t.Fatal("Expected an expiry to be set")
	}

	env.clock.Advance(2 * time.Hour)

	_, err := SharedDownload(ctx, env.Env, SharedDownloadOptions{UserID: "bob", ShareID: grant.ID, Password: credential(t, "bob-pw")})
	if !errors.Is(err, kerrors.ErrShareExpired) {
		t.Errorf("Expected ErrShareExpired, got %v", err)
	}

	active, err := ListShares(ctx, env.Env, ListSharesOptions{UserID: "bob", Received: true, ActiveOnly: true})
	if err != nil {
		t.Fatalf("Failed to list shares: %v", err)
	}
	if len(active.Received) != 0 {
		t.Errorf("Expired grant should not be offered, got %d", len(active.Received))
	}

	all, err := ListShares(ctx, env.Env, ListSharesOptions{UserID: "bob"})
	if err != nil {
		t.Fatalf("Failed to list shares: %v", err)
	}
	if len(all.Received) != 1 || all.Received[0].Status != store.ShareExpired {
		t.Errorf("Expected one expired grant, got %+v", all.Received)
	}
	if all.Received[0].Filename != "report.pdf" {
		t.Errorf("Expected filename report.pdf, got %q", all.Received[0].Filename)
	}

	// The remaining count was not touched.
	stored, _ := env.Store.GetShare(ctx, grant.ID)
	if stored.DownloadsRemaining != 5 {
		t.Errorf("Expected 5 downloads remaining, got %d", stored.DownloadsRemaining)
	}
}

func TestShare_UnlimitedByDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "a.txt", "abc")

	grant := env.share(t, ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "alice-pw")})
	if grant.DownloadsRemaining != store.Unlimited || grant.ExpiresAt != nil {
		t.Fatalf("Expected unlimited grant without expiry, got %+v", grant)
	}

	for i := 0; i < 3; i++ {
		result, err := SharedDownload(ctx, env.Env, SharedDownloadOptions{UserID: "bob", ShareID: grant.ID, Password: credential(t, "bob-pw")})
		if err != nil {
			t.Fatalf("Download %d failed: %v", i, err)
		}
		if result.Share.DownloadsRemaining != store.Unlimited {
			t.Errorf("Expected unlimited remaining, got %d", result.Share.DownloadsRemaining)
		}
	}
}

func TestShare_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "a.txt", "abc")

	tests := []struct {
		name string
		opts ShareOptions
		want error
	}{
		{"self share", ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "alice", Password: credential(t, "alice-pw")}, kerrors.ErrSelfShare},
		{"unknown recipient", ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "carol", Password: credential(t, "alice-pw")}, kerrors.ErrUserNotFound},
		{"not owner", ShareOptions{UserID: "bob", FileID: file.ID, Recipient: "alice", Password: credential(t, "bob-pw")}, kerrors.ErrNotOwner},
		{"wrong password", ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "wrong")}, kerrors.ErrWrongPassword},
		{"invalid limit", ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "alice-pw"), Downloads: -5}, kerrors.ErrInvalidDownloadLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Share(ctx, env.Env, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	// No failed attempt left a grant behind.
	grants, err := env.Store.ListSharesByFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("Failed to list shares: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("Expected no grants, got %d", len(grants))
	}
}

func TestSharedDownload_WrongReceiver(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	env.register(t, "carol", "carol-pw")
	file := env.upload(t, "alice", "a.txt", "abc")
	grant := env.share(t, ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "alice-pw"), Downloads: 1})

	_, err := SharedDownload(context.Background(), env.Env, SharedDownloadOptions{UserID: "carol", ShareID: grant.ID, Password: credential(t, "carol-pw")})
	if !errors.Is(err, kerrors.ErrShareNotFound) {
		t.Errorf("Expected ErrShareNotFound, got %v", err)
	}

	// A wrong password does not consume the grant.
	_, err = SharedDownload(context.Background(), env.Env, SharedDownloadOptions{UserID: "bob", ShareID: grant.ID, Password: credential(t, "wrong")})
	if !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	stored, _ := env.Store.GetShare(context.Background(), grant.ID)
	if stored.DownloadsRemaining != 1 {
		t.Errorf("Expected grant to be untouched, got %d remaining", stored.DownloadsRemaining)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "old-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "a.txt", "abc")
	grant := env.share(t, ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "old-pw")})

	before, _ := env.Store.GetIdentity(ctx, "alice")

	if _, err := ChangePassword(ctx, env.Env, ChangePasswordOptions{
		UserID:      "alice",
		OldPassword: credential(t, "old-pw"),
		NewPassword: credential(t, "new-pw"),
	}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	after, _ := env.Store.GetIdentity(ctx, "alice")
	if after.Identity.PublicKey != before.Identity.PublicKey {
		t.Error("Public key must not change")
	}
	if after.Identity.KDF.Salt == before.Identity.KDF.Salt {
		t.Error("Expected a new salt")
	}

	if _, err := Download(ctx, env.Env, DownloadOptions{UserID: "alice", FileID: file.ID, Password: credential(t, "old-pw")}); !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Old password should no longer work, got %v", err)
	}
	if _, err := Download(ctx, env.Env, DownloadOptions{UserID: "alice", FileID: file.ID, Password: credential(t, "new-pw")}); err != nil {
		t.Errorf("New password should work, got %v", err)
	}

	// Existing grants survive.
	if _, err := SharedDownload(ctx, env.Env, SharedDownloadOptions{UserID: "bob", ShareID: grant.ID, Password: credential(t, "bob-pw")}); err != nil {
		t.Errorf("Existing grant should still work, got %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "old-pw")
	before, _ := env.Store.GetIdentity(ctx, "alice")

	_, err := ChangePassword(ctx, env.Env, ChangePasswordOptions{
		UserID:      "alice",
		OldPassword: credential(t, "guess"),
		NewPassword: credential(t, "new-pw"),
	})
	if !errors.Is(err, kerrors.ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}

	after, _ := env.Store.GetIdentity(ctx, "alice")
	if after.Identity.WrappedPrivateKey != before.Identity.WrappedPrivateKey {
		t.Error("Identity must be unchanged after a rejected password change")
	}
}

func TestChangePassword_SameCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "old-pw")
	before, _ := env.Store.GetIdentity(ctx, "alice")

	pw := credential(t, "old-pw")
	_, err := ChangePassword(ctx, env.Env, ChangePasswordOptions{
		UserID:      "alice",
		OldPassword: pw,
		NewPassword: pw,
	})
	if !errors.Is(err, kerrors.ErrSameCredential) {
		t.Errorf("Expected ErrSameCredential, got %v", err)
	}

	after, _ := env.Store.GetIdentity(ctx, "alice")
	if after.Identity.WrappedPrivateKey != before.Identity.WrappedPrivateKey {
		t.Error("Identity must be unchanged after a rejected password change")
	}
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")

	if _, err := Register(ctx, env.Env, RegisterOptions{UserID: "alice", Password: credential(t, "pw2")}); !errors.Is(err, kerrors.ErrIdentityExists) {
		t.Errorf("Expected ErrIdentityExists, got %v", err)
	}
	if _, err := Register(ctx, env.Env, RegisterOptions{UserID: "../evil", Password: credential(t, "pw")}); !errors.Is(err, kerrors.ErrInvalidUserID) {
		t.Errorf("Expected ErrInvalidUserID, got %v", err)
	}

	destroyed := credential(t, "pw")
	destroyed.Destroy()
	if _, err := Register(ctx, env.Env, RegisterOptions{UserID: "bob", Password: destroyed}); !errors.Is(err, kerrors.ErrCredentialDestroyed) {
		t.Errorf("Expected ErrCredentialDestroyed, got %v", err)
	}
}

func TestRegister_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Register(ctx, env.Env, RegisterOptions{UserID: "alice", Password: credential(t, "pw")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, err := env.Store.GetIdentity(context.Background(), "alice"); !errors.Is(err, kerrors.ErrUserNotFound) {
		t.Errorf("Cancelled registration must not store an identity, got %v", err)
	}
}

func TestAccountAndListFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "a.txt", "abc")
	env.upload(t, "alice", "b.txt", "def")
	env.share(t, ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "alice-pw")})

	files, err := ListFiles(ctx, env.Env, "alice")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}

	account, err := Account(ctx, env.Env, "alice")
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if account.Stats.FilesOwned != 2 || account.Stats.SharesSent != 1 || account.Stats.SharesReceived != 0 {
		t.Errorf("Unexpected stats: %+v", account.Stats)
	}
	if account.Fingerprint == "" {
		t.Error("Expected a fingerprint")
	}

	if _, err := ListFiles(ctx, env.Env, "nobody"); !errors.Is(err, kerrors.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUpload_NoIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, err := Upload(context.Background(), env.Env, UploadOptions{UserID: "ghost", FilePatterns: []string{"x"}, BaseDir: env.dir})
	if !errors.Is(err, kerrors.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice-pw")
	env.register(t, "bob", "bob-pw")
	file := env.upload(t, "alice", "a.txt", "abc")
	grant := env.share(t, ShareOptions{UserID: "alice", FileID: file.ID, Recipient: "bob", Password: credential(t, "alice-pw"), Downloads: 2})
	if _, err := SharedDownload(ctx, env.Env, SharedDownloadOptions{UserID: "bob", ShareID: grant.ID, Password: credential(t, "bob-pw")}); err != nil {
		t.Fatalf("Shared download failed: %v", err)
	}

	result, err := Log(ctx, LogOptions{})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	var ops []string
	for _, e := range result.Entries {
		ops = append(ops, e.Operation)
	}
	want := []string{audit.OpRegister, audit.OpRegister, audit.OpUpload, audit.OpShare, audit.OpSharedDownload}
	if len(ops) != len(want) {
		t.Fatalf("Expected operations %v, got %v", want, ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, want[i], ops[i])
		}
	}

	last := result.Entries[len(result.Entries)-1]
	if last.DownloadsRemaining == nil || *last.DownloadsRemaining != 1 {
		t.Errorf("Expected 1 download remaining in audit entry, got %v", last.DownloadsRemaining)
	}

	filtered, err := Log(ctx, LogOptions{User: "bob", Operations: "shared-download"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(filtered.Entries) != 1 {
		t.Errorf("Expected 1 filtered entry, got %d", len(filtered.Entries))
	}
}
