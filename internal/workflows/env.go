package workflows

import (
	"fmt"
	"os"
	"time"

	"github.com/PolarWolf314/lockbox/internal/blobs"
	"github.com/PolarWolf314/lockbox/internal/configs"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Env carries the collaborators every workflow needs.
type Env struct {
	Store  store.Store
	Blobs  blobs.Store
	Config *configs.Config

	// Now defaults to time.Now. Tests override it to exercise expiry.
	Now func() time.Time
}

// OpenEnv opens the metadata store and blob store named by config.
func OpenEnv(config *configs.Config, settings *configs.Settings) (*Env, error) {
	if err := os.MkdirAll(settings.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s, err := store.Open(config.StorageDriver(), config.StorageDSN(settings))
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	b, err := blobs.NewFileStore(config.BlobDir(settings))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	return &Env{Store: s, Blobs: b, Config: config}, nil
}

// Close releases the metadata store.
func (e *Env) Close() error {
	return e.Store.Close()
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) config() *configs.Config {
	if e.Config == nil {
		return configs.DefaultConfig()
	}
	return e.Config
}

func validateUserID(userID string) error {
	if !utils.IsValidUserID(userID) {
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidUserID, userID)
	}
	return nil
}
