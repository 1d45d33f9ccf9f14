// Package blobs stores encrypted file bodies.
//
// Blobs are opaque: the store never sees plaintext or keys. Each upload gets
// a fresh path of the form <ownerID>/<unix nanos>_<sanitized name>, and
// FileStore refuses to overwrite an existing blob.
package blobs
