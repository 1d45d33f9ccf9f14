// Package secrets provides the cryptographic core of lockbox.
//
// This package handles identity custody and envelope encryption. It never
// touches the metadata store, the blob store or the terminal: every function
// is a pure operation over its explicit inputs and is safe for concurrent
// use.
//
// # Encryption Architecture
//
// lockbox uses a hybrid encryption scheme:
//
//  1. A random 256-bit content key encrypts a single file with AES-256-GCM
//  2. The uploader's RSA public key wraps a copy of the content key (RSA-OAEP, SHA-256)
//  3. Sharing unwraps that copy and wraps it again for the recipient
//
// The storage layer only ever sees ciphertext and wrapped keys.
//
// # Identities
//
// An identity is an RSA-2048 keypair. The private key is exported as PKCS#8
// and sealed with AES-256-GCM under a key derived from the account password
// with PBKDF2-HMAC-SHA256 (or Argon2id). Each identity has its own random
// salt, stored in its KDF parameters.
//
// # Envelopes
//
// Every symmetric encryption produces an Envelope whose wire form is
// nonce(12) ‖ ciphertext-with-tag, base64 encoded for text fields. A fresh
// random nonce is drawn for every encryption.
//
// # Errors
//
// Failures map to coarse sentinels from internal/errors: ErrWrongPassword,
// ErrUnwrapFailed and ErrDecryptFailed. The underlying primitive error is
// never exposed.
package secrets
