package core

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxKeySize is the widest wallet identifier any supported scheme produces.
const MaxKeySize = 32

// KeyID is the canonical fixed-width byte form of a wallet public key or
// address. It is comparable and can be used as a map key.
type KeyID struct {
	n   uint8
	raw [MaxKeySize]byte
}

// RawKeyID wraps canonical bytes without scheme validation. Stores use it to
// rebuild identifiers they persisted; the owning KeyCodec re-checks the width.
func RawKeyID(b []byte) (KeyID, error) {
	if len(b) == 0 || len(b) > MaxKeySize {
		return KeyID{}, fmt.Errorf("%w: %d bytes", ErrConversionFailure, len(b))
	}
	var k KeyID
	k.n = uint8(len(b))
	copy(k.raw[:], b)
	return k, nil
}

// Bytes returns a copy of the canonical bytes.
func (k KeyID) Bytes() []byte {
	out := make([]byte, k.n)
	copy(out, k.raw[:k.n])
	return out
}

// Len returns the width of the identifier in bytes.
func (k KeyID) Len() int {
	return int(k.n)
}

// Hex is a scheme-independent rendering used for storage keys and logs.
func (k KeyID) Hex() string {
	return hex.EncodeToString(k.raw[:k.n])
}

// KeyCodec converts between the human-readable form of a wallet identifier
// and its canonical fixed-width bytes. It is the only place identifiers are
// stringified.
type KeyCodec interface {
	// Chain is the account family named in the signing message header.
	Chain() string

	// Size is the fixed width of the canonical byte form.
	Size() int

	// Parse decodes and validates an external string.
	Parse(s string) (KeyID, error)

	// FromBytes validates raw canonical bytes.
	FromBytes(b []byte) (KeyID, error)

	// Format renders a KeyID in the canonical external form.
	Format(k KeyID) string
}

// Scheme names accepted by CodecFor.
const (
	SchemeSolana   = "solana"
	SchemeEthereum = "ethereum"
)

// CodecFor returns the codec for a configured scheme name.
func CodecFor(scheme string) (KeyCodec, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case SchemeSolana:
		return SolanaCodec{}, nil
	case SchemeEthereum:
		return EthereumCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown key scheme %q", scheme)
	}
}

func fixedWidth(b []byte, size int) (KeyID, error) {
	if len(b) != size {
		return KeyID{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyEncoding, size, len(b))
	}
	var k KeyID
	k.n = uint8(size)
	copy(k.raw[:], b)
	return k, nil
}
