package workflows

import (
	"context"
	"crypto/rsa"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/lockbox/internal/audit"
	"github.com/PolarWolf314/lockbox/internal/blobs"
	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

// UploadOptions configures the upload workflow.
type UploadOptions struct {
	UserID string

	// FilePatterns lists files, directories or globs to upload.
	FilePatterns []string

	// BaseDir resolves relative patterns. Empty means the working directory.
	BaseDir string

	// MimeType overrides content type detection for every file.
	MimeType string
}

// UploadedFile describes one stored file.
type UploadedFile struct {
	SourcePath string
	File       store.FileRecord
}

// UploadResult contains the outcome of an upload operation.
type UploadResult struct {
	Files []UploadedFile
}

// Upload encrypts files for their owner and stores them.
//
// Each file gets its own random content key. The file is sealed with
// AES-256-GCM under that key, the key is wrapped for the owner's public key
// and then destroyed. Uploading needs no password: only the public half of
// the identity is used.
//
// Files are processed in order; on error, files already stored stay stored
// and are reported in the partial result.
//
// Returns ErrUserNotFound if the user has no identity.
// Returns ErrNoFilesFound if the patterns match nothing.
func Upload(ctx context.Context, env *Env, opts UploadOptions) (*UploadResult, error) {
	record, err := env.Store.GetIdentity(ctx, opts.UserID)
	if err != nil {
		return nil, err
	}
	publicKey, err := record.Identity.ParsePublicKey()
	if err != nil {
		return nil, err
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	paths, err := utils.ResolveFiles(opts.FilePatterns, baseDir)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{}
	for _, path := range paths {
		file, err := uploadFile(ctx, env, opts.UserID, path, opts.MimeType, publicKey)
		if err != nil {
			return result, fmt.Errorf("uploading %s: %w", path, err)
		}
		result.Files = append(result.Files, UploadedFile{SourcePath: path, File: *file})
	}

	entry := audit.LogWithUser(audit.OpUpload, opts.UserID)
	for _, f := range result.Files {
		entry.Files = append(entry.Files, f.File.ID)
	}
	if len(result.Files) == 1 {
		entry.FileID = result.Files[0].File.ID
		entry.Filename = result.Files[0].File.Filename
	}
	audit.Log(entry)

	return result, nil
}

func uploadFile(ctx context.Context, env *Env, ownerID, path, mimeType string, owner *rsa.PublicKey) (*store.FileRecord, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer zeroBytes(plaintext)

	if mimeType == "" {
		mimeType = detectMimeType(path, plaintext)
	}

	sealed, err := runCrypto(ctx, func() (*sealedFile, error) {
		return sealForOwner(plaintext, owner)
	}, nil)
	if err != nil {
		return nil, err
	}

	now := env.now()
	filename := filepath.Base(path)
	blobPath := blobs.BlobPath(ownerID, filename, now)

	if err := env.Blobs.Put(ctx, blobPath, sealed.envelope.Bytes()); err != nil {
		return nil, fmt.Errorf("storing ciphertext: %w", err)
	}

	file := &store.FileRecord{
		OwnerID:         ownerID,
		BlobPath:        blobPath,
		Nonce:           secrets.EncodeBase64(sealed.envelope.Nonce),
		OwnerWrappedKey: sealed.wrapped,
		MimeType:        mimeType,
		Filename:        filename,
		Size:            int64(len(plaintext)),
		CreatedAt:       now.UTC(),
	}
	if err := env.Store.CreateFile(ctx, file); err != nil {
		// Best effort: an orphaned blob is unreadable without its record.
		_ = env.Blobs.Delete(context.WithoutCancel(ctx), blobPath)
		return nil, fmt.Errorf("storing file record: %w", err)
	}

	return file, nil
}

type sealedFile struct {
	envelope *secrets.Envelope
	wrapped  secrets.WrappedContentKey
}

// sealForOwner encrypts plaintext under a fresh content key and wraps the
// key for owner. The content key never outlives this call.
func sealForOwner(plaintext []byte, owner *rsa.PublicKey) (*sealedFile, error) {
	key, err := secrets.NewContentKey()
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	envelope, err := secrets.EncryptFile(plaintext, key)
	if err != nil {
		return nil, err
	}

	wrapped, err := secrets.WrapContentKey(key, owner)
	if err != nil {
		return nil, err
	}

	return &sealedFile{envelope: envelope, wrapped: wrapped}, nil
}

// detectMimeType guesses from the extension, then from the content.
func detectMimeType(path string, content []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(content)
}
