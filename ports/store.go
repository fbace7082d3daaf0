package ports

import (
	"context"
	"time"

	"github.com/layer-3/siwx/core"
)

// ChallengeStore keeps outstanding sign-in messages keyed by (key, nonce)
type ChallengeStore interface {
	// InsertChallenge stores msg, silently replacing any entry for the same pair
	InsertChallenge(ctx context.Context, key core.KeyID, nonce string, msg core.Message) error

	// GetChallenge returns the stored message or core.ErrMessageNotFound
	GetChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error)

	// ConsumeChallenge atomically returns and deletes the entry. Of any number
	// of concurrent callers, across processes sharing the store, at most one
	// gets the message; the rest get core.ErrMessageNotFound
	ConsumeChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error)

	// RemoveChallenge deletes the entry; a missing entry is not an error
	RemoveChallenge(ctx context.Context, key core.KeyID, nonce string) error

	// PruneExpired drops every message whose expiration time is before now
	// and reports how many were removed
	PruneExpired(ctx context.Context, now uint64) (int, error)
}

// MappingStore holds the principal <-> wallet key bijection
type MappingStore interface {
	// Bind writes both directions in one step
	Bind(ctx context.Context, principal core.Principal, key core.KeyID) error

	// KeyByPrincipal returns core.ErrMappingNotFound when no binding exists
	KeyByPrincipal(ctx context.Context, principal core.Principal) (core.KeyID, error)

	// PrincipalByKey returns core.ErrMappingNotFound when no binding exists
	PrincipalByKey(ctx context.Context, key core.KeyID) (core.Principal, error)
}

// TokenStore interface for access token invalidation
type TokenStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
