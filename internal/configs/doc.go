// Package configs manages lockbox's configuration.
//
// Configuration is a single TOML file, by default at
// $XDG_CONFIG_HOME/lockbox/config.toml:
//
//	[user]
//	name = "alice"
//
//	[storage]
//	driver = "sqlite"    # sqlite | postgres
//	dsn = ""             # postgres DSN, or a SQLite path
//	blob_dir = ""
//
//	[crypto]
//	kdf = "pbkdf2-sha256" # pbkdf2-sha256 | argon2id
//	kdf_iterations = 310000
//
//	[shares]
//	default_downloads = -1
//	default_expiry = ""   # Go duration, e.g. "72h"; empty means never
//
// A missing file yields DefaultConfig. Unknown keys are rejected.
//
// # Settings
//
// UserLockboxSettings holds the resolved config path, data directory and OS
// username. LOCKBOX_CONFIG and LOCKBOX_DATA_DIR override the XDG locations.
// The data directory holds the default SQLite database, the blob directory
// and the audit log.
package configs
