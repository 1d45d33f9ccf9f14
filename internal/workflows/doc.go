// Package workflows provides high-level orchestration for lockbox commands.
//
// Workflows coordinate the secrets, store, blobs and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// password prompts, spinners and output formatting.
//
// # Available Workflows
//
//   - Register: creates a user's identity
//   - ChangePassword: re-wraps the identity under a new password
//   - Upload: encrypts files for their owner and stores them
//   - Download: decrypts a file the user owns
//   - Share: re-wraps a file's content key for a recipient
//   - SharedDownload: decrypts a shared file and records the download
//   - ListFiles, ListShares, Account: read-only views
//   - Log: reads and filters the audit log
//
// Download and SharedDownload share one decryption path; they differ only
// in the store.KeyHolder (Owner or Grantee) that selects the wrapped key.
//
// # Passwords
//
// Passwords arrive as *secrets.Credential handles. Workflows use them inside
// a callback and never copy them out; the caller owns the handle's lifetime.
//
// # Error Handling
//
// Workflows return sentinel errors from internal/errors. Use errors.Is():
//
//	result, err := workflows.SharedDownload(ctx, env, opts)
//	if errors.Is(err, kerrors.ErrShareExhausted) {
//	    // The grant has no downloads left
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Key derivation, key generation and bulk encryption run on a separate
// goroutine; cancelling the context returns ctx.Err() without a partial
// result.
package workflows
