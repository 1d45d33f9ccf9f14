package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// RevokeOptions configures the revoke workflow.
type RevokeOptions struct {
	// UserID is the sender revoking the grant.
	UserID string

	// ShareID is the grant to revoke.
	ShareID string
}

// RevokeResult contains the outcome of a revoke operation.
type RevokeResult struct {
	// Grant is the grant as it was before deletion.
	Grant store.ShareGrant

	// Filename is the shared file's original name.
	Filename string
}

// Revoke deletes a share grant so its receiver can no longer download the
// file. Only the sender may revoke. The file and its other grants are not
// touched. A receiver who already downloaded the file keeps their copy.
//
// Returns ErrShareNotFound if the grant does not exist.
// Returns ErrNotOwner if the user did not create the grant.
func Revoke(ctx context.Context, env *Env, opts RevokeOptions) (*RevokeResult, error) {
	grant, err := env.Store.GetShare(ctx, opts.ShareID)
	if err != nil {
		return nil, err
	}
	if grant.SenderID != opts.UserID {
		return nil, kerrors.ErrNotOwner
	}

	filename := ""
	if file, err := env.Store.GetFile(ctx, grant.FileID); err == nil {
		filename = file.Filename
	}

	if err := env.Store.DeleteShare(ctx, grant.ID); err != nil {
		return nil, fmt.Errorf("deleting share: %w", err)
	}

	entry := audit.LogWithUser(audit.OpRevoke, opts.UserID)
	entry.FileID = grant.FileID
	entry.ShareID = grant.ID
	entry.TargetUser = grant.ReceiverID
	audit.Log(entry)

	return &RevokeResult{Grant: *grant, Filename: filename}, nil
}
