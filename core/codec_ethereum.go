package core

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EthereumKeySize is the width of an Ethereum account address.
const EthereumKeySize = common.AddressLength

// EthereumCodec handles 0x-prefixed hex addresses. Mixed-case input must
// carry a valid EIP-55 checksum; output is always checksummed.
type EthereumCodec struct{}

func (EthereumCodec) Chain() string { return "Ethereum" }

func (EthereumCodec) Size() int { return EthereumKeySize }

func (c EthereumCodec) Parse(s string) (KeyID, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return KeyID{}, fmt.Errorf("%w: address must start with 0x", ErrInvalidKeyEncoding)
	}
	if !common.IsHexAddress(s) {
		return KeyID{}, fmt.Errorf("%w: expected %d hex-encoded bytes", ErrInvalidKeyEncoding, EthereumKeySize)
	}
	addr := common.HexToAddress(s)

	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != "0x"+body {
		return KeyID{}, fmt.Errorf("%w: bad EIP-55 checksum", ErrInvalidKeyEncoding)
	}
	return c.FromBytes(addr.Bytes())
}

func (EthereumCodec) FromBytes(b []byte) (KeyID, error) {
	return fixedWidth(b, EthereumKeySize)
}

func (EthereumCodec) Format(k KeyID) string {
	return common.BytesToAddress(k.raw[:k.n]).Hex()
}
