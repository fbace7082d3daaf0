package core

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// SolanaKeySize is the width of an Ed25519 public key.
const SolanaKeySize = 32

// SolanaCodec handles base-58 encoded Ed25519 public keys.
type SolanaCodec struct{}

func (SolanaCodec) Chain() string { return "Solana" }

func (SolanaCodec) Size() int { return SolanaKeySize }

// Parse decodes a base-58 public key and rejects any width other than 32 bytes.
func (c SolanaCodec) Parse(s string) (KeyID, error) {
	if s == "" {
		return KeyID{}, fmt.Errorf("%w: empty public key", ErrInvalidKeyEncoding)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return KeyID{}, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	return c.FromBytes(decoded)
}

func (SolanaCodec) FromBytes(b []byte) (KeyID, error) {
	return fixedWidth(b, SolanaKeySize)
}

func (SolanaCodec) Format(k KeyID) string {
	return base58.Encode(k.raw[:k.n])
}
