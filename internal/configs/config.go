package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// Config is the user's config.toml.
type Config struct {
	User    UserConfig    `toml:"user"`
	Storage StorageConfig `toml:"storage"`
	Crypto  CryptoConfig  `toml:"crypto"`
	Shares  SharesConfig  `toml:"shares"`
}

type UserConfig struct {
	Name string `toml:"name"`
}

type StorageConfig struct {
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
	BlobDir string `toml:"blob_dir"`
}

type CryptoConfig struct {
	KDF           string `toml:"kdf"`
	KDFIterations int    `toml:"kdf_iterations"`
}

type SharesConfig struct {
	DefaultDownloads int    `toml:"default_downloads"`
	DefaultExpiry    string `toml:"default_expiry"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: store.DriverSQLite},
		Crypto: CryptoConfig{
			KDF:           secrets.KDFPBKDF2SHA256,
			KDFIterations: secrets.DefaultPBKDF2Iterations,
		},
		Shares: SharesConfig{DefaultDownloads: store.Unlimited},
	}
}

// LoadConfig reads the config file at path on top of the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes config to path.
func SaveConfig(path string, config *Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be caught by TOML decoding.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", store.DriverSQLite:
	case store.DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Crypto.KDF {
	case "", secrets.KDFPBKDF2SHA256:
		if c.Crypto.KDFIterations != 0 && c.Crypto.KDFIterations < secrets.MinPBKDF2Iterations {
			return fmt.Errorf("crypto.kdf_iterations must be at least %d", secrets.MinPBKDF2Iterations)
		}
	case secrets.KDFArgon2id:
	default:
		return fmt.Errorf("crypto.kdf: unsupported key derivation function %q", c.Crypto.KDF)
	}

	if c.Shares.DefaultDownloads == 0 || c.Shares.DefaultDownloads < store.Unlimited {
		return fmt.Errorf("shares.default_downloads must be -1 (unlimited) or positive")
	}
	if _, err := c.DefaultExpiry(); err != nil {
		return err
	}
	return nil
}

// DefaultExpiry parses shares.default_expiry. Zero means grants never expire.
func (c *Config) DefaultExpiry() (time.Duration, error) {
	if c.Shares.DefaultExpiry == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Shares.DefaultExpiry)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("shares.default_expiry must be a positive duration, got %q", c.Shares.DefaultExpiry)
	}
	return d, nil
}

// StorageDriver returns the configured driver, defaulting to SQLite.
func (c *Config) StorageDriver() string {
	if c.Storage.Driver == "" {
		return store.DriverSQLite
	}
	return c.Storage.Driver
}

// StorageDSN returns the configured DSN or the default SQLite database path.
func (c *Config) StorageDSN(s *Settings) string {
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}
	return s.DefaultDatabasePath()
}

// BlobDir returns the configured blob directory or the default one.
func (c *Config) BlobDir(s *Settings) string {
	if c.Storage.BlobDir != "" {
		return c.Storage.BlobDir
	}
	return s.DefaultBlobDir()
}

// ResolveUser picks the acting user: the flag value, then [user] name, then
// the operating system username.
func (c *Config) ResolveUser(flagValue string, s *Settings) string {
	if flagValue != "" {
		return flagValue
	}
	if c.User.Name != "" {
		return c.User.Name
	}
	return s.Username
}
