package workflows

import (
	"context"
	"time"

	"github.com/PolarWolf314/lockbox/internal/store"
)

// AccountResult describes a user's identity and activity.
type AccountResult struct {
	UserID      string
	Fingerprint string
	KDF         string
	Iterations  uint32
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Stats       store.Stats
}

// Account returns the user's public identity details and record counts.
// It never needs the password.
func Account(ctx context.Context, env *Env, userID string) (*AccountResult, error) {
	record, err := env.Store.GetIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}

	fingerprint, err := record.Identity.Fingerprint()
	if err != nil {
		return nil, err
	}

	stats, err := env.Store.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &AccountResult{
		UserID:      userID,
		Fingerprint: fingerprint,
		KDF:         record.Identity.KDF.Algorithm,
		Iterations:  record.Identity.KDF.Iterations,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		Stats:       *stats,
	}, nil
}
