package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"

	"github.com/google/uuid"
)

// dialect adapts the shared queries to a database/sql driver.
type dialect struct {
	name string

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool

	isUniqueViolation func(error) bool
}

// SQLStore implements Store over database/sql. Timestamps are stored as
// Unix nanoseconds so the schema is portable between SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS identities (
    user_id TEXT PRIMARY KEY,
    public_key TEXT NOT NULL,
    wrapped_private_key TEXT NOT NULL,
    kdf TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS files (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL REFERENCES identities(user_id),
    blob_path TEXT NOT NULL,
    nonce TEXT NOT NULL,
    owner_wrapped_key TEXT NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    filename TEXT NOT NULL,
    size BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS shares (
    id TEXT PRIMARY KEY,
    file_id TEXT NOT NULL REFERENCES files(id),
    sender_id TEXT NOT NULL REFERENCES identities(user_id),
    receiver_id TEXT NOT NULL REFERENCES identities(user_id),
    wrapped_key TEXT NOT NULL,
    expires_at BIGINT,
    downloads_remaining INTEGER NOT NULL DEFAULT -1,
    created_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_files_owner ON files(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_shares_sender ON shares(sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_shares_receiver ON shares(receiver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_shares_file ON shares(file_id)`,
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the name of the underlying SQL dialect.
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func newID() string {
	return uuid.New().String()
}

// ---- identities ----

// CreateIdentity stores a new identity for userID.
func (s *SQLStore) CreateIdentity(ctx context.Context, userID string, id *secrets.Identity) error {
	kdf, err := json.Marshal(id.KDF)
	if err != nil {
		return fmt.Errorf("marshal kdf params: %w", err)
	}
	now := toUnix(time.Now())

	_, err = s.exec(ctx,
		`INSERT INTO identities (user_id, public_key, wrapped_private_key, kdf, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		userID, id.PublicKey, id.WrappedPrivateKey, string(kdf), now, now)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return kerrors.ErrIdentityExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetIdentity returns the identity for userID.
func (s *SQLStore) GetIdentity(ctx context.Context, userID string) (*IdentityRecord, error) {
	var (
		rec                  IdentityRecord
		kdf                  string
		createdAt, updatedAt int64
	)
	err := s.queryRow(ctx,
		`SELECT user_id, public_key, wrapped_private_key, kdf, created_at, updated_at
         FROM identities WHERE user_id = ?`, userID,
	).Scan(&rec.UserID, &rec.Identity.PublicKey, &rec.Identity.WrappedPrivateKey, &kdf, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if err := json.Unmarshal([]byte(kdf), &rec.Identity.KDF); err != nil {
		return nil, fmt.Errorf("unmarshal kdf params: %w", err)
	}
	rec.CreatedAt = fromUnix(createdAt)
	rec.UpdatedAt = fromUnix(updatedAt)
	return &rec, nil
}

// UpdateIdentity swaps in next if the stored envelope still equals expected's.
func (s *SQLStore) UpdateIdentity(ctx context.Context, userID string, expected, next *secrets.Identity) error {
	kdf, err := json.Marshal(next.KDF)
	if err != nil {
		return fmt.Errorf("marshal kdf params: %w", err)
	}

	res, err := s.exec(ctx,
		`UPDATE identities SET public_key = ?, wrapped_private_key = ?, kdf = ?, updated_at = ?
         WHERE user_id = ? AND wrapped_private_key = ?`,
		next.PublicKey, next.WrappedPrivateKey, string(kdf), toUnix(time.Now()), userID, expected.WrappedPrivateKey)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.GetIdentity(ctx, userID); err != nil {
		return err
	}
	return kerrors.ErrIdentityConflict
}

// ---- files ----

// CreateFile inserts f, assigning an ID and creation time if unset.
func (s *SQLStore) CreateFile(ctx context.Context, f *FileRecord) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx,
		`INSERT INTO files (id, owner_id, blob_path, nonce, owner_wrapped_key, mime_type, filename, size, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.BlobPath, f.Nonce, string(f.OwnerWrappedKey), f.MimeType, f.Filename, f.Size, toUnix(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

const fileColumns = `id, owner_id, blob_path, nonce, owner_wrapped_key, mime_type, filename, size, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*FileRecord, error) {
	var (
		f         FileRecord
		wrapped   string
		createdAt int64
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.BlobPath, &f.Nonce, &wrapped, &f.MimeType, &f.Filename, &f.Size, &createdAt); err != nil {
		return nil, err
	}
	f.OwnerWrappedKey = secrets.WrappedContentKey(wrapped)
	f.CreatedAt = fromUnix(createdAt)
	return &f, nil
}

// GetFile returns the file record with id.
func (s *SQLStore) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	f, err := scanFile(s.queryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kerrors.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// ListFilesByOwner returns ownerID's files, newest first.
func (s *SQLStore) ListFilesByOwner(ctx context.Context, ownerID string) ([]FileRecord, error) {
	rows, err := s.query(ctx, `SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// ---- shares ----

// CreateShare inserts g, assigning an ID and creation time if unset.
func (s *SQLStore) CreateShare(ctx context.Context, g *ShareGrant) error {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.DownloadsRemaining < Unlimited || g.DownloadsRemaining == 0 {
		return kerrors.ErrInvalidDownloadLimit
	}

	var expiresAt sql.NullInt64
	if g.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: toUnix(*g.ExpiresAt), Valid: true}
	}

	_, err := s.exec(ctx,
		`INSERT INTO shares (id, file_id, sender_id, receiver_id, wrapped_key, expires_at, downloads_remaining, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.FileID, g.SenderID, g.ReceiverID, string(g.WrappedKey), expiresAt, g.DownloadsRemaining, toUnix(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

const shareColumns = `id, file_id, sender_id, receiver_id, wrapped_key, expires_at, downloads_remaining, created_at`

func scanShare(row scanner) (*ShareGrant, error) {
	var (
		g         ShareGrant
		wrapped   string
		expiresAt sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&g.ID, &g.FileID, &g.SenderID, &g.ReceiverID, &wrapped, &expiresAt, &g.DownloadsRemaining, &createdAt); err != nil {
		return nil, err
	}
	g.WrappedKey = secrets.WrappedContentKey(wrapped)
	if expiresAt.Valid {
		t := fromUnix(expiresAt.Int64)
		g.ExpiresAt = &t
	}
	g.CreatedAt = fromUnix(createdAt)
	return &g, nil
}

// GetShare returns the grant with id.
func (s *SQLStore) GetShare(ctx context.Context, id string) (*ShareGrant, error) {
	g, err := scanShare(s.queryRow(ctx, `SELECT `+shareColumns+` FROM shares WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kerrors.ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}
	return g, nil
}

func (s *SQLStore) listShares(ctx context.Context, column, value string) ([]ShareGrant, error) {
	rows, err := s.query(ctx, `SELECT `+shareColumns+` FROM shares WHERE `+column+` = ? ORDER BY created_at DESC`, value)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []ShareGrant
	for rows.Next() {
		g, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *g)
	}
	return shares, rows.Err()
}

// DeleteShare removes a grant. Downloads already in flight are unaffected.
func (s *SQLStore) DeleteShare(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n == 0 {
		return kerrors.ErrShareNotFound
	}
	return nil
}

// ListSharesBySender returns grants created by senderID, newest first.
func (s *SQLStore) ListSharesBySender(ctx context.Context, senderID string) ([]ShareGrant, error) {
	return s.listShares(ctx, "sender_id", senderID)
}

// ListSharesByReceiver returns grants addressed to receiverID, newest first.
func (s *SQLStore) ListSharesByReceiver(ctx context.Context, receiverID string) ([]ShareGrant, error) {
	return s.listShares(ctx, "receiver_id", receiverID)
}

// ListSharesByFile returns every grant for fileID, newest first.
func (s *SQLStore) ListSharesByFile(ctx context.Context, fileID string) ([]ShareGrant, error) {
	return s.listShares(ctx, "file_id", fileID)
}

// ConsumeDownload performs the decrement-if-positive as a single UPDATE so
// two concurrent downloads cannot both pass a limit of one.
func (s *SQLStore) ConsumeDownload(ctx context.Context, shareID string, now time.Time) (int, error) {
	res, err := s.exec(ctx,
		`UPDATE shares SET downloads_remaining = downloads_remaining - 1
         WHERE id = ? AND downloads_remaining > 0 AND (expires_at IS NULL OR expires_at > ?)`,
		shareID, toUnix(now))
	if err != nil {
		return 0, fmt.Errorf("consume download: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("consume download: %w", err)
	}

	g, err := s.GetShare(ctx, shareID)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		return g.DownloadsRemaining, nil
	}

	// Nothing was decremented: the grant is unlimited, expired or exhausted.
	switch g.Status(now) {
	case ShareExpired:
		return 0, kerrors.ErrShareExpired
	case ShareExhausted:
		return 0, kerrors.ErrShareExhausted
	}
	if g.DownloadsRemaining == Unlimited {
		return Unlimited, nil
	}
	return 0, kerrors.ErrShareExhausted
}

// Stats counts userID's files and grants.
func (s *SQLStore) Stats(ctx context.Context, userID string) (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM files WHERE owner_id = ?`, &st.FilesOwned},
		{`SELECT COUNT(*) FROM shares WHERE sender_id = ?`, &st.SharesSent},
		{`SELECT COUNT(*) FROM shares WHERE receiver_id = ?`, &st.SharesReceived},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query, userID).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}
	return &st, nil
}
