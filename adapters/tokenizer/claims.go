package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the wallet binding
type AccessClaims struct {
	jwt.RegisteredClaims
	Principal []byte `json:"pid"`  // Raw principal bytes
	Address   string `json:"addr"` // Canonical wallet address
}
