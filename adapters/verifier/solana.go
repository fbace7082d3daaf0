package verifier

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/ports"
	"github.com/mr-tron/base58"
)

// Ed25519Verifier checks base-58 encoded Ed25519 signatures made by Solana wallets.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new Solana signature verifier
func NewEd25519Verifier() ports.Verifier {
	return Ed25519Verifier{}
}

// Verify decodes the signature and checks it against the 32-byte public key.
func (Ed25519Verifier) Verify(ctx context.Context, message []byte, signature string, key core.KeyID) (bool, error) {
	if key.Len() != ed25519.PublicKeySize {
		return false, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, key.Len())
	}

	sig, err := base58.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}

	return ed25519.Verify(ed25519.PublicKey(key.Bytes()), message, sig), nil
}
