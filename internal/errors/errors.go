package errors

import "errors"

// Cryptographic errors. Messages are deliberately coarse: they never carry
// the underlying primitive error, a byte offset or padding detail.
var (
	// ErrWrongPassword indicates the wrapped private key could not be opened
	// with the supplied password. Tampered envelopes surface as this error too.
	ErrWrongPassword = errors.New("wrong password")

	// ErrUnwrapFailed indicates a wrapped content key does not decrypt under
	// the supplied private key.
	ErrUnwrapFailed = errors.New("failed to unwrap content key")

	// ErrDecryptFailed indicates file ciphertext failed authentication.
	ErrDecryptFailed = errors.New("failed to decrypt file")

	// ErrEncryptFailed indicates file encryption failed.
	ErrEncryptFailed = errors.New("failed to encrypt file")

	// ErrKeyGeneration indicates an asymmetric or symmetric key could not be generated.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrRandomnessUnavailable indicates the system random source failed.
	ErrRandomnessUnavailable = errors.New("secure randomness unavailable")

	// ErrInvalidEnvelope indicates an envelope is too short or not valid base64.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrInvalidKeyLength indicates a content key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid content key length")

	// ErrInvalidPublicKey indicates a public key could not be parsed or is not RSA.
	ErrInvalidPublicKey = errors.New("invalid or unsupported public key")

	// ErrUnsupportedKDF indicates an identity names an unknown key-derivation function.
	ErrUnsupportedKDF = errors.New("unsupported key derivation function")
)

// Credential errors.
var (
	// ErrEmptyPassword indicates an empty password was supplied.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrCredentialDestroyed indicates a credential handle was used after Destroy.
	ErrCredentialDestroyed = errors.New("credential has been destroyed")

	// ErrSameCredential indicates one credential handle was passed as both
	// the old and the new password.
	ErrSameCredential = errors.New("old and new password must be separate credentials")
)

// Record errors are surfaced by the metadata store.
var (
	// ErrUserNotFound indicates no identity record exists for the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrIdentityExists indicates the user already has an identity.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrIdentityConflict indicates the stored identity changed between read and update.
	ErrIdentityConflict = errors.New("identity was modified concurrently")

	// ErrFileNotFound indicates the file record could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrShareNotFound indicates the share grant could not be located.
	ErrShareNotFound = errors.New("share not found")

	// ErrBlobNotFound indicates the ciphertext blob is missing from the blob store.
	ErrBlobNotFound = errors.New("blob not found")
)

// Share errors.
var (
	// ErrShareExpired indicates the share grant's expiry has passed.
	ErrShareExpired = errors.New("share has expired")

	// ErrShareExhausted indicates the share grant has no downloads remaining.
	ErrShareExhausted = errors.New("share has no downloads remaining")

	// ErrNotOwner indicates the caller does not own the file.
	ErrNotOwner = errors.New("user does not own this file")

	// ErrSelfShare indicates a user attempted to share a file with themselves.
	ErrSelfShare = errors.New("cannot share a file with yourself")

	// ErrInvalidDownloadLimit indicates a download limit below -1 or equal to 0.
	ErrInvalidDownloadLimit = errors.New("download limit must be -1 (unlimited) or positive")
)

// Input errors.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrInvalidUserID indicates a user ID outside the allowed character set.
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidDateFormat indicates a date filter could not be parsed.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrNoAuditLog indicates no audit log has been written yet.
	ErrNoAuditLog = errors.New("no audit log found")
)
