package core

import "crypto/sha256"

// HashFunc derives fixed-size map keys from arbitrary bytes.
type HashFunc func([]byte) [32]byte

// DefaultHash is SHA-256.
var DefaultHash HashFunc = sha256.Sum256

// ChallengeKey derives the store key for a (key, nonce) pair from the
// length-prefixed concatenation of both, so every nonce issued to the same
// key lands in its own slot.
func ChallengeKey(hash HashFunc, key KeyID, nonce string) [32]byte {
	if hash == nil {
		hash = DefaultHash
	}
	return hash(lengthPrefixed(key.Bytes(), []byte(nonce)))
}
