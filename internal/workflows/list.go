package workflows

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// ListFiles returns the files userID owns, newest first.
func ListFiles(ctx context.Context, env *Env, userID string) ([]store.FileRecord, error) {
	if _, err := env.Store.GetIdentity(ctx, userID); err != nil {
		return nil, err
	}
	return env.Store.ListFilesByOwner(ctx, userID)
}

// ListSharesOptions configures the share listing workflow.
type ListSharesOptions struct {
	UserID string

	// Sent and Received select which side to list. If neither is set, both
	// are listed.
	Sent     bool
	Received bool

	// ActiveOnly hides expired and exhausted grants.
	ActiveOnly bool
}

// ShareView is a grant with the details a listing shows.
type ShareView struct {
	Grant    store.ShareGrant
	Filename string
	Status   store.ShareStatus
}

// ListSharesResult contains the outcome of a share listing.
type ListSharesResult struct {
	Sent     []ShareView
	Received []ShareView
}

// ListShares lists grants the user sent and received with their current
// status. Expiry takes precedence over the remaining count, so an expired
// grant is never shown as active.
func ListShares(ctx context.Context, env *Env, opts ListSharesOptions) (*ListSharesResult, error) {
	if _, err := env.Store.GetIdentity(ctx, opts.UserID); err != nil {
		return nil, err
	}

	both := !opts.Sent && !opts.Received
	result := &ListSharesResult{}

	if opts.Sent || both {
		grants, err := env.Store.ListSharesBySender(ctx, opts.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing sent shares: %w", err)
		}
		if result.Sent, err = shareViews(ctx, env, grants, opts.ActiveOnly); err != nil {
			return nil, err
		}
	}

	if opts.Received || both {
		grants, err := env.Store.ListSharesByReceiver(ctx, opts.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing received shares: %w", err)
		}
		if result.Received, err = shareViews(ctx, env, grants, opts.ActiveOnly); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func shareViews(ctx context.Context, env *Env, grants []store.ShareGrant, activeOnly bool) ([]ShareView, error) {
	now := env.now()
	filenames := make(map[string]string)

	var views []ShareView
	for _, g := range grants {
		status := g.Status(now)
		if activeOnly && status != store.ShareActive {
			continue
		}

		name, ok := filenames[g.FileID]
		if !ok {
			file, err := env.Store.GetFile(ctx, g.FileID)
			switch {
			case err == nil:
				name = file.Filename
			case errors.Is(err, kerrors.ErrFileNotFound):
				name = ""
			default:
				return nil, err
			}
			filenames[g.FileID] = name
		}

		views = append(views, ShareView{Grant: g, Filename: name, Status: status})
	}
	return views, nil
}
