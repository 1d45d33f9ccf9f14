// Package errors provides typed error values for lockbox.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
//   - Crypto errors: ErrWrongPassword, ErrUnwrapFailed, ErrDecryptFailed
//   - Credential errors: ErrEmptyPassword, ErrCredentialDestroyed
//   - Record errors: ErrUserNotFound, ErrFileNotFound, ErrShareNotFound
//   - Share errors: ErrShareExpired, ErrShareExhausted, ErrNotOwner
//
// Cryptographic failures are terminal. Retrying a wrong password or a
// corrupted ciphertext cannot succeed, so nothing in lockbox retries them.
//
// # Usage
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Download(ctx, env, opts)
//	if errors.Is(err, kerrors.ErrWrongPassword) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("loading identity for %s: %w", userID, kerrors.ErrUserNotFound)
package errors
