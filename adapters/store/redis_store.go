package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/siwx/core"
	"github.com/redis/go-redis/v9"
)

// maxBindAttempts bounds the optimistic retries of Bind.
const maxBindAttempts = 5

// consumeScript reads and deletes one hash field in a single step.
var consumeScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], ARGV[1])
if v then
	redis.call("HDEL", KEYS[1], ARGV[1])
end
return v
`)

// RedisStore is a Redis implementation of the ChallengeStore, MappingStore
// and TokenStore ports. Challenges and both mapping directions live in
// three hashes; binding uses an optimistic transaction over both.
type RedisStore struct {
	client *redis.Client
	hash   core.HashFunc

	challengesKey     string
	principalToKeyKey string
	keyToPrincipalKey string
	invalidatedPrefix string
}

// NewRedisStore creates a new Redis store. Every key is placed under
// "siwx:<namespace>:" so schemes sharing a database do not see each other's
// bindings. A nil hash selects core.DefaultHash.
func NewRedisStore(client *redis.Client, namespace string, hash core.HashFunc) *RedisStore {
	if hash == nil {
		hash = core.DefaultHash
	}
	prefix := "siwx:"
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &RedisStore{
		client:            client,
		hash:              hash,
		challengesKey:     prefix + "challenges",
		principalToKeyKey: prefix + "principal_key",
		keyToPrincipalKey: prefix + "key_principal",
		invalidatedPrefix: prefix + "invalidated:",
	}
}

func (s *RedisStore) challengeField(key core.KeyID, nonce string) string {
	h := core.ChallengeKey(s.hash, key, nonce)
	return hex.EncodeToString(h[:])
}

func (s *RedisStore) InsertChallenge(ctx context.Context, key core.KeyID, nonce string, msg core.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := s.client.HSet(ctx, s.challengesKey, s.challengeField(key, nonce), payload).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) GetChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error) {
	payload, err := s.client.HGet(ctx, s.challengesKey, s.challengeField(key, nonce)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Message{}, core.ErrMessageNotFound
	}
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	var msg core.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return core.Message{}, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return msg, nil
}

// ConsumeChallenge runs HGET and HDEL in one script, so only one caller
// across all instances sharing the database can take a given challenge.
func (s *RedisStore) ConsumeChallenge(ctx context.Context, key core.KeyID, nonce string) (core.Message, error) {
	payload, err := consumeScript.Run(ctx, s.client, []string{s.challengesKey}, s.challengeField(key, nonce)).Text()
	if errors.Is(err, redis.Nil) {
		return core.Message{}, core.ErrMessageNotFound
	}
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to consume challenge: %w", err)
	}

	var msg core.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return core.Message{}, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return msg, nil
}

func (s *RedisStore) RemoveChallenge(ctx context.Context, key core.KeyID, nonce string) error {
	if err := s.client.HDel(ctx, s.challengesKey, s.challengeField(key, nonce)).Err(); err != nil {
		return fmt.Errorf("failed to remove challenge: %w", err)
	}
	return nil
}

// PruneExpired scans every stored challenge. Entries that no longer decode
// are dropped along with the expired ones.
func (s *RedisStore) PruneExpired(ctx context.Context, now uint64) (int, error) {
	entries, err := s.client.HGetAll(ctx, s.challengesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan challenges: %w", err)
	}

	var stale []string
	for field, payload := range entries {
		var msg core.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.ExpirationTime < now {
			stale = append(stale, field)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed, err := s.client.HDel(ctx, s.challengesKey, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to prune challenges: %w", err)
	}
	return int(removed), nil
}

// Bind writes both directions in one MULTI/EXEC. The transaction is retried
// when another writer touches either hash before it commits.
func (s *RedisStore) Bind(ctx context.Context, principal core.Principal, key core.KeyID) error {
	principalField := hex.EncodeToString(principal[:])
	keyField := key.Hex()

	txf := func(tx *redis.Tx) error {
		oldKey, err := tx.HGet(ctx, s.principalToKeyKey, principalField).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		oldPrincipal, err := tx.HGet(ctx, s.keyToPrincipalKey, keyField).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(oldKey) > 0 && hex.EncodeToString(oldKey) != keyField {
				pipe.HDel(ctx, s.keyToPrincipalKey, hex.EncodeToString(oldKey))
			}
			if len(oldPrincipal) > 0 && hex.EncodeToString(oldPrincipal) != principalField {
				pipe.HDel(ctx, s.principalToKeyKey, hex.EncodeToString(oldPrincipal))
			}
			pipe.HSet(ctx, s.principalToKeyKey, principalField, key.Bytes())
			pipe.HSet(ctx, s.keyToPrincipalKey, keyField, principal.Bytes())
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxBindAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, s.principalToKeyKey, s.keyToPrincipalKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to bind principal: %w", err)
	}
	return nil
}

func (s *RedisStore) KeyByPrincipal(ctx context.Context, principal core.Principal) (core.KeyID, error) {
	raw, err := s.client.HGet(ctx, s.principalToKeyKey, hex.EncodeToString(principal[:])).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.KeyID{}, core.ErrMappingNotFound
	}
	if err != nil {
		return core.KeyID{}, fmt.Errorf("failed to load key: %w", err)
	}
	return core.RawKeyID(raw)
}

func (s *RedisStore) PrincipalByKey(ctx context.Context, key core.KeyID) (core.Principal, error) {
	raw, err := s.client.HGet(ctx, s.keyToPrincipalKey, key.Hex()).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Principal{}, core.ErrMappingNotFound
	}
	if err != nil {
		return core.Principal{}, fmt.Errorf("failed to load principal: %w", err)
	}

	principal, err := core.PrincipalFromBytes(raw)
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: %v", core.ErrConversionFailure, err)
	}
	return principal, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.invalidatedPrefix + tokenID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.invalidatedPrefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}
