package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/lockbox/internal/configs"
)

// Operation names recorded in the audit log.
const (
	OpRegister       = "register"
	OpPasswd         = "passwd"
	OpUpload         = "upload"
	OpDownload       = "download"
	OpShare          = "share"
	OpSharedDownload = "shared-download"
	OpRevoke         = "revoke"
)

// Entry represents a single audit log entry. It never carries key material.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // User performing the action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	FileID             string   `json:"file_id,omitempty"`             // For upload/download/share.
	Filename           string   `json:"filename,omitempty"`            // For upload/download.
	ShareID            string   `json:"share_id,omitempty"`            // For share/shared-download/revoke.
	TargetUser         string   `json:"target_user,omitempty"`         // For share/revoke.
	DownloadsRemaining *int     `json:"downloads_remaining,omitempty"` // For share/shared-download.
	ExpiresAt          string   `json:"expires_at,omitempty"`          // For share.
	Files              []string `json:"files,omitempty"`               // For multi-file upload.
	KDF                string   `json:"kdf,omitempty"`                 // For register/passwd.
}

// Log appends an entry to the audit log.
// If logging fails it does nothing: operations should not fail just because
// audit logging failed.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath()
	if logPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser returns an entry for op with the user field set.
func LogWithUser(op, user string) Entry {
	return Entry{Operation: op, User: user}
}

// LogPath returns the path to the audit log file.
// Returns empty string if no data directory is configured.
func LogPath() string {
	settings := configs.UserLockboxSettings
	if settings == nil || settings.DataDir == "" {
		return ""
	}
	return settings.AuditLogPath()
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	logPath := LogPath()
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Tail returns the last n entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
