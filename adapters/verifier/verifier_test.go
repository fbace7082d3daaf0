package verifier

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/siwx/core"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519Verifier(t *testing.T) {
	ctx := context.Background()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	key, err := core.SolanaCodec{}.FromBytes(pub)
	require.NoError(t, err)

	msg := []byte("example.com wants you to sign in with your Solana account")
	sig := base58.Encode(ed25519.Sign(priv, msg))

	v := NewEd25519Verifier()

	ok, err := v.Verify(ctx, msg, sig, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(ctx, []byte("tampered"), sig, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Verify(ctx, msg, "0OIl", key)
	assert.Error(t, err)

	_, err = v.Verify(ctx, msg, base58.Encode([]byte("short")), key)
	assert.Error(t, err)
}

func TestPersonalSignVerifier(t *testing.T) {
	ctx := context.Background()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr := crypto.PubkeyToAddress(priv.PublicKey)
	key, err := core.EthereumCodec{}.FromBytes(addr.Bytes())
	require.NoError(t, err)

	msg := []byte("example.com wants you to sign in with your Ethereum account")
	sig, err := crypto.Sign(accounts.TextHash(msg), priv)
	require.NoError(t, err)

	v := NewPersonalSignVerifier()

	t.Run("raw recovery id", func(t *testing.T) {
		ok, err := v.Verify(ctx, msg, hexutil.Encode(sig), key)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wallet recovery id", func(t *testing.T) {
		walletSig := append([]byte(nil), sig...)
		walletSig[64] += 27
		ok, err := v.Verify(ctx, msg, hexutil.Encode(walletSig), key)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("other signer", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)
		otherSig, err := crypto.Sign(accounts.TextHash(msg), other)
		require.NoError(t, err)

		ok, err := v.Verify(ctx, msg, hexutil.Encode(otherSig), key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify(ctx, msg, "not-hex", key)
		assert.Error(t, err)
		_, err = v.Verify(ctx, msg, "0x1234", key)
		assert.Error(t, err)
	})
}

func TestForCodec(t *testing.T) {
	v, err := ForCodec(core.SolanaCodec{})
	require.NoError(t, err)
	assert.IsType(t, Ed25519Verifier{}, v)

	v, err = ForCodec(core.EthereumCodec{})
	require.NoError(t, err)
	assert.IsType(t, PersonalSignVerifier{}, v)
}
