// Package store persists identities, file records and share grants.
//
// Two backends share one schema: SQLite (modernc.org/sqlite, pure Go) for
// single-user installs and PostgreSQL (lib/pq) for shared deployments. All
// timestamps are stored as Unix nanoseconds.
//
// The store only ever sees public keys and wrapped keys. Download limits are
// enforced with a single conditional UPDATE in ConsumeDownload, so concurrent
// downloads of a grant with one remaining use cannot both succeed.
//
// ResolveKey turns a KeyHolder (Owner or Grantee) into the wrapped content
// key that applies to the caller, checking ownership, addressee and
// availability on the way.
package store
