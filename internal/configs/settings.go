package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Settings holds the resolved local paths lockbox works with.
type Settings struct {
	ConfigPath string
	DataDir    string
	Username   string
}

// AuditLogPath returns the path of the JSON Lines audit log.
func (s *Settings) AuditLogPath() string {
	return filepath.Join(s.DataDir, "audit.jsonl")
}

// DefaultDatabasePath returns the SQLite database used when no DSN is configured.
func (s *Settings) DefaultDatabasePath() string {
	return filepath.Join(s.DataDir, "lockbox.db")
}

// DefaultBlobDir returns the blob directory used when none is configured.
func (s *Settings) DefaultBlobDir() string {
	return filepath.Join(s.DataDir, "blobs")
}

// UserLockboxSettings is resolved once at startup. Tests may replace it.
var UserLockboxSettings *Settings

func init() {
	settings, err := ResolveSettings()
	if err != nil {
		// Paths are resolved again by commands that need them.
		settings = &Settings{}
	}
	UserLockboxSettings = settings
}

// ResolveSettings computes settings from the environment.
//
// LOCKBOX_CONFIG overrides the config file location and LOCKBOX_DATA_DIR
// overrides the data directory; otherwise the XDG locations are used.
func ResolveSettings() (*Settings, error) {
	configPath := os.Getenv("LOCKBOX_CONFIG")
	if configPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("error getting config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "lockbox", "config.toml")
	}

	dataDir := os.Getenv("LOCKBOX_DATA_DIR")
	if dataDir == "" {
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("error getting home directory: %w", err)
			}
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		dataDir = filepath.Join(dataDir, "lockbox")
	}

	username, err := utils.GetUsername()
	if err != nil {
		username = ""
	}

	return &Settings{
		ConfigPath: configPath,
		DataDir:    dataDir,
		Username:   username,
	}, nil
}
