package core

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// PrincipalSize is the fixed width of a host principal.
const PrincipalSize = 29

// selfAuthenticatingTag marks a principal derived from key material.
const selfAuthenticatingTag = 0x02

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the host-native identity bound to a wallet key.
type Principal [PrincipalSize]byte

// PrincipalFromBytes validates that buf is exactly PrincipalSize bytes long.
func PrincipalFromBytes(buf []byte) (Principal, error) {
	var p Principal
	if len(buf) != PrincipalSize {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrincipalEncoding, PrincipalSize, len(buf))
	}
	copy(p[:], buf)
	return p, nil
}

// DerivePrincipal computes the principal assigned to a wallet key on its
// first login. The result is stable for a given salt and key.
func DerivePrincipal(salt string, key KeyID) Principal {
	seed := sha256.Sum256(lengthPrefixed([]byte(salt), key.Bytes()))
	digest := sha256.Sum224(seed[:])

	var p Principal
	copy(p[:], digest[:])
	p[PrincipalSize-1] = selfAuthenticatingTag
	return p
}

// Bytes returns a copy of the raw principal bytes.
func (p Principal) Bytes() []byte {
	out := make([]byte, PrincipalSize)
	copy(out, p[:])
	return out
}

// String renders the textual form: base32 of crc32 ++ bytes, lower case,
// in dash-separated groups of five.
func (p Principal) String() string {
	buf := make([]byte, 4, 4+PrincipalSize)
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p[:]))
	buf = append(buf, p[:]...)

	enc := strings.ToLower(principalEncoding.EncodeToString(buf))

	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + 5
		if end > len(enc) {
			end = len(enc)
		}
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}

func lengthPrefixed(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = binary.AppendUvarint(out, uint64(len(part)))
		out = append(out, part...)
	}
	return out
}
