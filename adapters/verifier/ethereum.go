package verifier

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/ports"
)

// PersonalSignVerifier checks EIP-191 personal_sign signatures by recovering
// the signer address.
type PersonalSignVerifier struct{}

// NewPersonalSignVerifier creates a new Ethereum signature verifier
func NewPersonalSignVerifier() ports.Verifier {
	return PersonalSignVerifier{}
}

// Verify recovers the address that produced signature over message and
// compares it with key.
func (PersonalSignVerifier) Verify(ctx context.Context, message []byte, signature string, key core.KeyID) (bool, error) {
	decodedSig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(decodedSig) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(decodedSig))
	}

	// Wallets emit v as 27/28; recovery expects 0/1.
	if decodedSig[crypto.RecoveryIDOffset] >= 27 {
		decodedSig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), decodedSig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return bytes.Equal(recovered.Bytes(), key.Bytes()), nil
}

// ForCodec picks the verifier matching a key codec.
func ForCodec(codec core.KeyCodec) (ports.Verifier, error) {
	switch codec.(type) {
	case core.SolanaCodec:
		return NewEd25519Verifier(), nil
	case core.EthereumCodec:
		return NewPersonalSignVerifier(), nil
	default:
		return nil, fmt.Errorf("no verifier for %s keys", codec.Chain())
	}
}
