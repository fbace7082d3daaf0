package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/siwx/core"
)

// MemoryStore is an in-memory implementation of the ChallengeStore,
// MappingStore and TokenStore ports. One mutex guards all state so pruning
// takes part in the same serialization as inserts and removals.
type MemoryStore struct {
	hash core.HashFunc

	challenges        map[[32]byte]core.Message
	principalToKey    map[core.Principal]core.KeyID
	keyToPrincipal    map[core.KeyID]core.Principal
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. A nil hash selects core.DefaultHash.
func NewMemoryStore(hash core.HashFunc) *MemoryStore {
	if hash == nil {
		hash = core.DefaultHash
	}
	return &MemoryStore{
		hash:              hash,
		challenges:        make(map[[32]byte]core.Message),
		principalToKey:    make(map[core.Principal]core.KeyID),
		keyToPrincipal:    make(map[core.KeyID]core.Principal),
		invalidatedTokens: make(map[string]time.Time),
	}
}

func (s *MemoryStore) InsertChallenge(ctx context.Context, key core.KeyID, nonce string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[core.ChallengeKey(s.hash, key, nonce)] = msg
	return nil
}

func (s *MemoryStore) GetChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.challenges[core.ChallengeKey(s.hash, key, nonce)]
	if !ok {
		return core.Message{}, core.ErrMessageNotFound
	}
	return msg, nil
}

func (s *MemoryStore) ConsumeChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := core.ChallengeKey(s.hash, key, nonce)
	msg, ok := s.challenges[k]
	if !ok {
		return core.Message{}, core.ErrMessageNotFound
	}
	delete(s.challenges, k)
	return msg, nil
}

func (s *MemoryStore) RemoveChallenge(ctx context.Context, key core.KeyID, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, core.ChallengeKey(s.hash, key, nonce))
	return nil
}

func (s *MemoryStore) PruneExpired(ctx context.Context, now uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, msg := range s.challenges {
		if msg.ExpirationTime < now {
			delete(s.challenges, k)
			removed++
		}
	}
	return removed, nil
}

// Bind writes both directions under a single lock. Stale entries from an
// earlier binding of either side are dropped so the maps stay a bijection.
func (s *MemoryStore) Bind(ctx context.Context, principal core.Principal, key core.KeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldKey, ok := s.principalToKey[principal]; ok && oldKey != key {
		delete(s.keyToPrincipal, oldKey)
	}
	if oldPrincipal, ok := s.keyToPrincipal[key]; ok && oldPrincipal != principal {
		delete(s.principalToKey, oldPrincipal)
	}

	s.principalToKey[principal] = key
	s.keyToPrincipal[key] = principal
	return nil
}

func (s *MemoryStore) KeyByPrincipal(ctx context.Context, principal core.Principal) (core.KeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.principalToKey[principal]
	if !ok {
		return core.KeyID{}, core.ErrMappingNotFound
	}
	return key, nil
}

func (s *MemoryStore) PrincipalByKey(ctx context.Context, key core.KeyID) (core.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principal, ok := s.keyToPrincipal[key]
	if !ok {
		return core.Principal{}, core.ErrMappingNotFound
	}
	return principal, nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = time.Now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated. Records past their
// expiry are dropped lazily.
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	if time.Now().After(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}

	return true, nil
}

// Len returns the number of outstanding challenges.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.challenges)
}
