package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/lockbox/internal/configs"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	UserID string

	// Settings locates the data directory and audit log.
	Settings *configs.Settings
}

// Doctor runs health checks on the local lockbox installation.
//
// The doctor workflow checks:
//   - Data directory and audit log permissions
//   - Metadata store reachability
//   - The user's identity and its key-derivation cost
//   - That every file the user owns still has an intact blob
func Doctor(ctx context.Context, env *Env, opts DoctorOptions) (*DoctorResult, error) {
	settings := opts.Settings
	if settings == nil {
		settings = configs.UserLockboxSettings
	}

	checks := []func() CheckResult{
		func() CheckResult { return checkDataDir(settings) },
		func() CheckResult { return checkAuditLog(settings) },
		func() CheckResult { return checkStore(ctx, env, opts.UserID) },
		func() CheckResult { return checkIdentity(ctx, env, opts.UserID) },
		func() CheckResult { return checkBlobs(ctx, env, opts.UserID) },
	}

	var results []CheckResult
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, check())
	}

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func checkDataDir(settings *configs.Settings) CheckResult {
	const name = "Data directory"

	info, err := os.Stat(settings.DataDir)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Data directory %s is not accessible: %v", settings.DataDir, err),
		}
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Data directory is accessible by other users (%o)", perm),
			Suggestion: fmt.Sprintf("Run 'chmod 700 %s'", settings.DataDir),
		}
	}
	return CheckResult{Name: name, Status: CheckPass, Message: "Data directory permissions are correct"}
}

func checkAuditLog(settings *configs.Settings) CheckResult {
	const name = "Audit log"

	path := settings.AuditLogPath()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return CheckResult{Name: name, Status: CheckPass, Message: "No audit log written yet"}
	}
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Audit log is not accessible: %v", err)}
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Audit log is readable by other users (%o)", perm),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", path),
		}
	}
	return CheckResult{Name: name, Status: CheckPass, Message: "Audit log permissions are correct"}
}

func checkStore(ctx context.Context, env *Env, userID string) CheckResult {
	const name = "Metadata store"

	stats, err := env.Store.Stats(ctx, userID)
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Metadata store query failed: %v", err)}
	}
	return CheckResult{
		Name:   name,
		Status: CheckPass,
		Message: fmt.Sprintf("Metadata store reachable (%d files, %d shares sent, %d received)",
			stats.FilesOwned, stats.SharesSent, stats.SharesReceived),
	}
}

func checkIdentity(ctx context.Context, env *Env, userID string) CheckResult {
	const name = "Identity"

	record, err := env.Store.GetIdentity(ctx, userID)
	if errors.Is(err, kerrors.ErrUserNotFound) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("No identity registered for %s", userID),
			Suggestion: "Run 'lockbox account register' to create one",
		}
	}
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Failed to load identity: %v", err)}
	}

	if _, err := record.Identity.ParsePublicKey(); err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: "Stored public key is invalid"}
	}

	kdf := record.Identity.KDF
	switch kdf.Algorithm {
	case secrets.KDFArgon2id:
	case secrets.KDFPBKDF2SHA256:
		if kdf.Iterations < secrets.DefaultPBKDF2Iterations {
			return CheckResult{
				Name:    name,
				Status:  CheckWarning,
				Message: fmt.Sprintf("Identity uses %d PBKDF2 iterations, below the recommended %d", kdf.Iterations, secrets.DefaultPBKDF2Iterations),
			}
		}
	default:
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Identity uses unsupported KDF %q", kdf.Algorithm)}
	}

	return CheckResult{Name: name, Status: CheckPass, Message: fmt.Sprintf("Identity for %s is valid (%s)", userID, kdf.Algorithm)}
}

func checkBlobs(ctx context.Context, env *Env, userID string) CheckResult {
	const name = "File blobs"

	files, err := env.Store.ListFilesByOwner(ctx, userID)
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Failed to list files: %v", err)}
	}

	var broken int
	for _, f := range files {
		data, err := env.Blobs.Get(ctx, f.BlobPath)
		if err != nil {
			broken++
			continue
		}
		envelope, err := secrets.ParseEnvelope(data)
		if err != nil || secrets.EncodeBase64(envelope.Nonce) != f.Nonce {
			broken++
		}
	}

	if broken > 0 {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("%d of %d file blobs are missing or do not match their records", broken, len(files)),
		}
	}
	return CheckResult{Name: name, Status: CheckPass, Message: fmt.Sprintf("All %d file blobs are present", len(files))}
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
