package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalFromBytes(t *testing.T) {
	raw := bytes.Repeat([]byte{7}, PrincipalSize)
	p, err := PrincipalFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, p.Bytes())

	for _, n := range []int{0, 1, PrincipalSize - 1, PrincipalSize + 1, 64} {
		assert.NotPanics(t, func() {
			_, err := PrincipalFromBytes(make([]byte, n))
			assert.ErrorIs(t, err, ErrInvalidPrincipalEncoding, "len %d", n)
		})
	}
}

func TestDerivePrincipal(t *testing.T) {
	k1, err := SolanaCodec{}.FromBytes(bytes.Repeat([]byte{1}, SolanaKeySize))
	require.NoError(t, err)
	k2, err := SolanaCodec{}.FromBytes(bytes.Repeat([]byte{2}, SolanaKeySize))
	require.NoError(t, err)

	p := DerivePrincipal("salt", k1)
	assert.Equal(t, p, DerivePrincipal("salt", k1))
	assert.NotEqual(t, p, DerivePrincipal("salt", k2))
	assert.NotEqual(t, p, DerivePrincipal("pepper", k1))
	assert.Equal(t, byte(selfAuthenticatingTag), p[PrincipalSize-1])
}

func TestPrincipalString(t *testing.T) {
	p, err := PrincipalFromBytes(bytes.Repeat([]byte{0}, PrincipalSize))
	require.NoError(t, err)

	text := p.String()
	assert.Equal(t, strings.ToLower(text), text)

	groups := strings.Split(text, "-")
	// 33 bytes of base32 is 53 characters: ten groups of five and one of three
	require.Len(t, groups, 11)
	for _, g := range groups[:10] {
		assert.Len(t, g, 5)
	}
	assert.Len(t, groups[10], 3)
}

func TestChallengeKey(t *testing.T) {
	key, err := SolanaCodec{}.FromBytes(bytes.Repeat([]byte{1}, SolanaKeySize))
	require.NoError(t, err)
	other, err := SolanaCodec{}.FromBytes(bytes.Repeat([]byte{2}, SolanaKeySize))
	require.NoError(t, err)

	a := ChallengeKey(nil, key, "nonce-a")
	assert.Equal(t, a, ChallengeKey(DefaultHash, key, "nonce-a"))
	assert.NotEqual(t, a, ChallengeKey(nil, key, "nonce-b"))
	assert.NotEqual(t, a, ChallengeKey(nil, other, "nonce-a"))
}

func TestLengthPrefixingAvoidsAmbiguity(t *testing.T) {
	assert.NotEqual(t,
		lengthPrefixed([]byte("ab"), []byte("c")),
		lengthPrefixed([]byte("a"), []byte("bc")),
	)
}
