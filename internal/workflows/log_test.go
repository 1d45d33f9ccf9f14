package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func TestLog_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := Log(ctx, LogOptions{}); !errors.Is(err, kerrors.ErrNoAuditLog) {
		t.Fatalf("Expected ErrNoAuditLog before any operation, got %v", err)
	}

	env.register(t, "alice", "pw")
	env.register(t, "bob", "pw")
	env.upload(t, "alice", "a.txt", "alpha")

	all, err := Log(ctx, LogOptions{})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(all.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all.Entries))
	}

	byAlice, err := Log(ctx, LogOptions{User: "alice"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	for _, e := range byAlice.Entries {
		if e.User != "alice" {
			t.Errorf("Expected only alice's entries, got %+v", e)
		}
	}
	if len(byAlice.Entries) != 2 {
		t.Errorf("Expected 2 entries for alice, got %d", len(byAlice.Entries))
	}

	uploads, err := Log(ctx, LogOptions{Operations: "upload, share"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(uploads.Entries) != 1 || uploads.Entries[0].Operation != audit.OpUpload {
		t.Errorf("Expected the single upload entry, got %+v", uploads.Entries)
	}

	latest, err := Log(ctx, LogOptions{Limit: 1, Reverse: true})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(latest.Entries) != 1 || latest.Entries[0].Operation != audit.OpUpload {
		t.Errorf("Expected most recent entry to be the upload, got %+v", latest.Entries)
	}
	if latest.TotalEntriesBeforeFilter != 3 {
		t.Errorf("Expected 3 entries before filtering, got %d", latest.TotalEntriesBeforeFilter)
	}

	if _, err := Log(ctx, LogOptions{Since: "yesterday"}); !errors.Is(err, kerrors.ErrInvalidDateFormat) {
		t.Errorf("Expected ErrInvalidDateFormat, got %v", err)
	}
}

func TestFormatDetails(t *testing.T) {
	remaining := 2
	e := audit.Entry{
		Operation:          audit.OpShare,
		FileID:             "file-1",
		TargetUser:         "bob",
		DownloadsRemaining: &remaining,
	}
	if got := FormatDetails(e); got != "file-1 with bob, 2 downloads" {
		t.Errorf("Unexpected share details: %q", got)
	}
	if got := FormatDetailsOneline(e); got != "-> bob" {
		t.Errorf("Unexpected oneline share details: %q", got)
	}

	shared := audit.Entry{Operation: audit.OpSharedDownload, ShareID: "0123456789abcdef"}
	if got := FormatDetailsOneline(shared); got != "01234567" {
		t.Errorf("Expected short share ID, got %q", got)
	}
}
