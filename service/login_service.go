package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/ports"
)

const (
	directionPrincipalToKey = "principal_to_key"
	directionKeyToPrincipal = "key_to_principal"
)

// Options wires a LoginService. Codec, Challenges, Mappings, Verifier,
// Tokenizer, Tokens and Policy are required.
type Options struct {
	Codec      core.KeyCodec
	Challenges ports.ChallengeStore
	Mappings   ports.MappingStore
	Tokens     ports.TokenStore
	Verifier   ports.Verifier
	Tokenizer  ports.Tokenizer
	Policy     ports.Policy
	Events     ports.EventPublisher
	Metrics    *Metrics
	Logger     *slog.Logger

	Message      core.MessageSettings
	Salt         string
	ChallengeTTL time.Duration
	SessionTTL   time.Duration

	// Clock and Nonce default to time.Now and 32 random hex-encoded bytes.
	Clock func() time.Time
	Nonce func() (string, error)
}

// LoginService runs the sign-in flow: issue a challenge, consume it after
// the wallet signs, bind the wallet key to a principal and issue an access
// token. Mutating operations are serialized; lookups are not.
type LoginService struct {
	codec      core.KeyCodec
	challenges ports.ChallengeStore
	mappings   ports.MappingStore
	tokens     ports.TokenStore
	verifier   ports.Verifier
	tokenizer  ports.Tokenizer
	policy     ports.Policy
	eventPub   ports.EventPublisher
	metrics    *Metrics
	logger     *slog.Logger

	message      core.MessageSettings
	salt         string
	challengeTTL time.Duration
	sessionTTL   time.Duration
	now          func() time.Time
	nonce        func() (string, error)

	mu sync.Mutex
}

// NewLoginService creates a new login service
func NewLoginService(opts Options) (*LoginService, error) {
	switch {
	case opts.Codec == nil:
		return nil, errors.New("codec is required")
	case opts.Challenges == nil:
		return nil, errors.New("challenge store is required")
	case opts.Mappings == nil:
		return nil, errors.New("mapping store is required")
	case opts.Tokens == nil:
		return nil, errors.New("token store is required")
	case opts.Verifier == nil:
		return nil, errors.New("verifier is required")
	case opts.Tokenizer == nil:
		return nil, errors.New("tokenizer is required")
	case opts.Policy == nil:
		return nil, errors.New("policy is required")
	case opts.ChallengeTTL <= 0 || opts.SessionTTL <= 0:
		return nil, errors.New("ttls must be positive")
	}

	s := &LoginService{
		codec:        opts.Codec,
		challenges:   opts.Challenges,
		mappings:     opts.Mappings,
		tokens:       opts.Tokens,
		verifier:     opts.Verifier,
		tokenizer:    opts.Tokenizer,
		policy:       opts.Policy,
		eventPub:     opts.Events,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		message:      opts.Message,
		salt:         opts.Salt,
		challengeTTL: opts.ChallengeTTL,
		sessionTTL:   opts.SessionTTL,
		now:          opts.Clock,
		nonce:        opts.Nonce,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.nonce == nil {
		s.nonce = generateNonce
	}
	return s, nil
}

// PrepareLogin validates the wallet key and stores a fresh challenge for it
func (s *LoginService) PrepareLogin(ctx context.Context, rawKey string) (core.Message, error) {
	key, err := s.codec.Parse(rawKey)
	if err != nil {
		return core.Message{}, err
	}

	nonce, err := s.nonce()
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := core.NewMessage(
		s.codec.Format(key),
		nonce,
		core.Nanos(s.now()),
		uint64(s.challengeTTL),
		s.message,
	)

	if err := s.challenges.InsertChallenge(ctx, key, nonce, msg); err != nil {
		return core.Message{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.metrics.challengeIssued()
	s.logger.Debug("challenge issued", "address", msg.Address, "expires_at", core.FormatTimestamp(msg.ExpirationTime))
	return msg, nil
}

// Login consumes the challenge identified by (rawKey, nonce), checks the
// wallet signature over it and binds the key to a principal. The challenge
// is removed before expiry or the signature is judged, so it can never be
// replayed.
func (s *LoginService) Login(ctx context.Context, rawKey, nonce, signature string) (*core.LoginResult, error) {
	result, err := s.login(ctx, rawKey, nonce, signature)
	s.metrics.login(err)
	return result, err
}

func (s *LoginService) login(ctx context.Context, rawKey, nonce, signature string) (*core.LoginResult, error) {
	key, err := s.codec.Parse(rawKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Taking the challenge out of the store is the one-shot point: only one
	// caller, in this process or any other sharing the store, gets it.
	msg, err := s.challenges.ConsumeChallenge(ctx, key, nonce)
	if err != nil {
		return nil, err
	}

	if msg.IsExpired(core.Nanos(s.now())) {
		return nil, core.ErrChallengeExpired
	}

	ok, err := s.verifier.Verify(ctx, []byte(msg.SigningText(s.codec.Chain())), signature, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrVerificationFailed, err)
	}
	if !ok {
		return nil, core.ErrVerificationFailed
	}

	principal, err := s.mappings.PrincipalByKey(ctx, key)
	if errors.Is(err, core.ErrMappingNotFound) {
		principal = core.DerivePrincipal(s.salt, key)
	} else if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}

	if err := s.mappings.Bind(ctx, principal, key); err != nil {
		return nil, fmt.Errorf("failed to bind principal: %w", err)
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Principal: principal,
		Address:   msg.Address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, principal, msg.Address); err != nil {
			// The binding is already written; the event is best effort.
			s.logger.Warn("failed to publish login event", "principal", principal.String(), "error", err)
		}
	}

	s.logger.Info("wallet signed in", "principal", principal.String(), "address", msg.Address)
	return &core.LoginResult{
		Principal:   principal,
		Address:     msg.Address,
		AccessToken: accessToken,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// AddressByPrincipal returns the wallet address bound to a raw principal.
func (s *LoginService) AddressByPrincipal(ctx context.Context, rawPrincipal []byte) (string, error) {
	address, err := s.addressByPrincipal(ctx, rawPrincipal)
	s.metrics.lookup(directionPrincipalToKey, err)
	return address, err
}

func (s *LoginService) addressByPrincipal(ctx context.Context, rawPrincipal []byte) (string, error) {
	if !s.policy.PrincipalToKeyEnabled() {
		return "", fmt.Errorf("principal to %s key %w", s.codec.Chain(), core.ErrMappingDisabled)
	}

	principal, err := core.PrincipalFromBytes(rawPrincipal)
	if err != nil {
		return "", err
	}

	stored, err := s.mappings.KeyByPrincipal(ctx, principal)
	if err != nil {
		return "", err
	}

	key, err := s.codec.FromBytes(stored.Bytes())
	if err != nil {
		s.logger.Error("stored key failed width check", "principal", principal.String(), "error", err)
		return "", fmt.Errorf("%w: %v", core.ErrConversionFailure, err)
	}
	return s.codec.Format(key), nil
}

// PrincipalByAddress returns the principal bound to a wallet address.
func (s *LoginService) PrincipalByAddress(ctx context.Context, rawKey string) (core.Principal, error) {
	principal, err := s.principalByAddress(ctx, rawKey)
	s.metrics.lookup(directionKeyToPrincipal, err)
	return principal, err
}

func (s *LoginService) principalByAddress(ctx context.Context, rawKey string) (core.Principal, error) {
	if !s.policy.KeyToPrincipalEnabled() {
		return core.Principal{}, fmt.Errorf("%s key to principal %w", s.codec.Chain(), core.ErrMappingDisabled)
	}

	key, err := s.codec.Parse(rawKey)
	if err != nil {
		return core.Principal{}, err
	}

	return s.mappings.PrincipalByKey(ctx, key)
}

// PruneExpired drops every challenge whose validity window has passed.
func (s *LoginService) PruneExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.challenges.PruneExpired(ctx, core.Nanos(s.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to prune challenges: %w", err)
	}
	s.metrics.pruned(removed)
	return removed, nil
}

// ValidateAccessToken parses an access token and rejects invalidated ones
func (s *LoginService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.tokens.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// Logout invalidates an access token for the rest of its lifetime
func (s *LoginService) Logout(ctx context.Context, accessToken string) error {
	session, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if err := s.tokens.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Principal, session.ID); err != nil {
			s.logger.Warn("failed to publish logout event", "principal", session.Principal.String(), "error", err)
		}
	}

	return nil
}

// generateNonce returns 32 random bytes, hex encoded
func generateNonce() (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(nonceBytes), nil
}
