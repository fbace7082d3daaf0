package tokenizer

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/siwx/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newSession(t *testing.T, expiresIn time.Duration) *core.Session {
	t.Helper()
	principal, err := core.PrincipalFromBytes(bytes.Repeat([]byte{3}, core.PrincipalSize))
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	return &core.Session{
		ID:        uuid.New().String(),
		Principal: principal,
		Address:   "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		IssuedAt:  now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t), "example.com")
	session := newSession(t, time.Hour)

	token, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)

	got, err := tk.AccessTokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Principal, got.Principal)
	assert.Equal(t, session.Address, got.Address)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
}

func TestAccessTokenRejections(t *testing.T) {
	key := newKey(t)
	tk := NewJWTTokenizer(key, "example.com")

	t.Run("expired", func(t *testing.T) {
		session := newSession(t, -time.Minute)
		token, err := tk.SessionToAccessToken(session)
		require.NoError(t, err)

		_, err = tk.AccessTokenToSession(token)
		require.ErrorIs(t, err, core.ErrTokenExpired)
	})

	t.Run("foreign key", func(t *testing.T) {
		other := NewJWTTokenizer(newKey(t), "example.com")
		token, err := other.SessionToAccessToken(newSession(t, time.Hour))
		require.NoError(t, err)

		_, err = tk.AccessTokenToSession(token)
		require.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTTokenizer(key, "other.example")
		token, err := other.SessionToAccessToken(newSession(t, time.Hour))
		require.NoError(t, err)

		_, err = tk.AccessTokenToSession(token)
		require.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tk.AccessTokenToSession("not.a.token")
		require.ErrorIs(t, err, core.ErrInvalidToken)
	})
}
