package workflows

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PolarWolf314/lockbox/internal/blobs"
	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// testClock is a controllable clock for expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	*Env
	clock *testClock
	dir   string
}

// newTestEnv builds an Env over a temporary SQLite database and blob
// directory, with the minimum KDF cost to keep tests fast.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	original := configs.UserLockboxSettings
	configs.UserLockboxSettings = &configs.Settings{DataDir: dir}
	t.Cleanup(func() { configs.UserLockboxSettings = original })

	s, err := store.OpenSQLite(filepath.Join(dir, "lockbox.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	b, err := blobs.NewFileStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("Failed to open blob store: %v", err)
	}

	config := configs.DefaultConfig()
	config.Crypto.KDFIterations = secrets.MinPBKDF2Iterations

	clock := &testClock{now: time.Now().UTC()}
	return &testEnv{
		Env:   &Env{Store: s, Blobs: b, Config: config, Now: clock.Now},
		clock: clock,
		dir:   dir,
	}
}

func credential(t *testing.T, password string) *secrets.Credential {
	t.Helper()
	cred, err := secrets.NewCredential([]byte(password))
	if err != nil {
		t.Fatalf("Failed to create credential: %v", err)
	}
	t.Cleanup(cred.Destroy)
	return cred
}

func (e *testEnv) register(t *testing.T, userID, password string) {
	t.Helper()
	if _, err := Register(context.Background(), e.Env, RegisterOptions{
		UserID:   userID,
		Password: credential(t, password),
	}); err != nil {
		t.Fatalf("Failed to register %s: %v", userID, err)
	}
}

// upload writes content to a file named name and uploads it as userID.
func (e *testEnv) upload(t *testing.T, userID, name, content string) store.FileRecord {
	t.Helper()
	srcDir := filepath.Join(e.dir, "src", userID)
	if err := os.MkdirAll(srcDir, 0700); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}

	result, err := Upload(context.Background(), e.Env, UploadOptions{
		UserID:       userID,
		FilePatterns: []string{name},
		BaseDir:      srcDir,
	})
	if err != nil {
		t.Fatalf("Failed to upload %s: %v", name, err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("Expected 1 uploaded file, got %d", len(result.Files))
	}
	return result.Files[0].File
}

func (e *testEnv) share(t *testing.T, opts ShareOptions) store.ShareGrant {
	t.Helper()
	result, err := Share(context.Background(), e.Env, opts)
	if err != nil {
		t.Fatalf("Failed to share: %v", err)
	}
	return result.Grant
}
