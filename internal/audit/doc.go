// Package audit records lockbox operations in a local audit trail.
//
// Register, password change, upload, download, share and shared download
// each append one entry. Entries name users, file IDs and share IDs; they
// never contain passwords, keys or plaintext.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<data dir>/audit.jsonl
//
// # Usage
//
//	entry := audit.LogWithUser(audit.OpUpload, user)
//	entry.FileID = file.ID
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails the operation continues
// without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display. Malformed entries
// are silently skipped to handle partial writes.
package audit
